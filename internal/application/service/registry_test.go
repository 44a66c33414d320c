package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"removal-agent/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRegistry_SerializesSameKey(t *testing.T) {
	r := NewLockRegistry()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.Lock(42)
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, r.Len())
}

func TestLockRegistry_DifferentKeysDoNotBlock(t *testing.T) {
	r := NewLockRegistry()
	unlockA := r.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := r.Lock(2)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

type countingLedger struct {
	mu        sync.Mutex
	inFlight  map[uint64]int
	overlaps  int
	requested int
}

func (l *countingLedger) enter(id uint64) {
	l.mu.Lock()
	l.inFlight[id]++
	if l.inFlight[id] > 1 {
		l.overlaps++
	}
	l.mu.Unlock()
}

func (l *countingLedger) leave(id uint64) {
	l.mu.Lock()
	l.inFlight[id]--
	l.requested++
	l.mu.Unlock()
}

func (l *countingLedger) ListPending(context.Context) ([]entity.BrokerLedgerEntry, error) {
	return []entity.BrokerLedgerEntry{{ID: 1}}, nil
}

func (l *countingLedger) MarkRequested(_ context.Context, id uint64, _ time.Time) error {
	l.enter(id)
	time.Sleep(time.Millisecond)
	l.leave(id)
	return nil
}

func (l *countingLedger) Reset(ctx context.Context, id uint64) error {
	return l.MarkRequested(ctx, id, time.Time{})
}

func (l *countingLedger) Get(context.Context, uint64) (*entity.BrokerLedgerEntry, error) {
	return nil, entity.ErrBrokerNotFound
}

func (l *countingLedger) List(context.Context) ([]entity.BrokerLedgerEntry, error) { return nil, nil }

func (l *countingLedger) Insert(context.Context, string, string) (*entity.BrokerLedgerEntry, error) {
	return &entity.BrokerLedgerEntry{ID: 9}, nil
}

func (l *countingLedger) Close() error { return nil }

func TestSerializedLedger(t *testing.T) {
	inner := &countingLedger{inFlight: map[uint64]int{}}
	ledger := NewSerializedLedger(inner, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = ledger.MarkRequested(ctx, 5, time.Now())
			} else {
				_ = ledger.Reset(ctx, 5)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, inner.overlaps)
	assert.Equal(t, 10, inner.requested)

	pending, err := ledger.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = ledger.Get(ctx, 1)
	assert.ErrorIs(t, err, entity.ErrBrokerNotFound)
	assert.NoError(t, ledger.Close())
}
