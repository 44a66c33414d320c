package service

import (
	"context"
	"sync"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// LockRegistry hands out one mutex per broker id. Entries are dropped once
// nobody holds or waits for them.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[uint64]*lockEntry
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		locks: make(map[uint64]*lockEntry),
	}
}

func (r *LockRegistry) Lock(id uint64) (unlock func()) {
	r.mu.Lock()
	entry, ok := r.locks[id]
	if !ok {
		entry = &lockEntry{}
		r.locks[id] = entry
	}
	entry.refs++
	r.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		r.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}

func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

var _ output.LedgerPort = (*SerializedLedger)(nil)

// SerializedLedger serializes writes per broker id. Reads pass through.
type SerializedLedger struct {
	next  output.LedgerPort
	locks *LockRegistry
}

func NewSerializedLedger(next output.LedgerPort, locks *LockRegistry) *SerializedLedger {
	if locks == nil {
		locks = NewLockRegistry()
	}
	return &SerializedLedger{
		next:  next,
		locks: locks,
	}
}

func (l *SerializedLedger) ListPending(ctx context.Context) ([]entity.BrokerLedgerEntry, error) {
	return l.next.ListPending(ctx)
}

func (l *SerializedLedger) MarkRequested(ctx context.Context, id uint64, at time.Time) error {
	unlock := l.locks.Lock(id)
	defer unlock()
	return l.next.MarkRequested(ctx, id, at)
}

func (l *SerializedLedger) Reset(ctx context.Context, id uint64) error {
	unlock := l.locks.Lock(id)
	defer unlock()
	return l.next.Reset(ctx, id)
}

func (l *SerializedLedger) Get(ctx context.Context, id uint64) (*entity.BrokerLedgerEntry, error) {
	return l.next.Get(ctx, id)
}

func (l *SerializedLedger) List(ctx context.Context) ([]entity.BrokerLedgerEntry, error) {
	return l.next.List(ctx)
}

func (l *SerializedLedger) Insert(ctx context.Context, name, url string) (*entity.BrokerLedgerEntry, error) {
	return l.next.Insert(ctx, name, url)
}

func (l *SerializedLedger) Close() error {
	return l.next.Close()
}
