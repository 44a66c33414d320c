package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

var _ output.LedgerPort = (*Ledger)(nil)

type Config struct {
	Path string
}

func DefaultConfig() Config {
	return Config{Path: "data/ledger"}
}

// Ledger keeps broker entries in an embedded badger store keyed by id.
type Ledger struct {
	store  *badgerhold.Store
	logger output.LoggerPort

	// insertMu makes id allocation and insert one step.
	insertMu sync.Mutex
}

func Open(cfg Config, logger output.LoggerPort) (*Ledger, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(cfg.Path).WithLogger(nil)

	logger.Debug("Opening ledger database", "path", cfg.Path)
	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &Ledger{store: store, logger: logger}, nil
}

func (l *Ledger) List(ctx context.Context) ([]entity.BrokerLedgerEntry, error) {
	var entries []entity.BrokerLedgerEntry
	if err := l.store.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list brokers: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (l *Ledger) ListPending(ctx context.Context) ([]entity.BrokerLedgerEntry, error) {
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]entity.BrokerLedgerEntry, 0, len(all))
	for _, e := range all {
		if e.RemovalState.Pending() {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (l *Ledger) Get(ctx context.Context, id uint64) (*entity.BrokerLedgerEntry, error) {
	var entry entity.BrokerLedgerEntry
	if err := l.store.Get(id, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", entity.ErrBrokerNotFound, id)
		}
		return nil, fmt.Errorf("failed to get broker %d: %w", id, err)
	}
	return &entry, nil
}

func (l *Ledger) MarkRequested(ctx context.Context, id uint64, at time.Time) error {
	return l.update(id, func(e *entity.BrokerLedgerEntry) {
		at := at.UTC()
		e.RemovalState = entity.RemovalRequested
		e.SubmissionDate = &at
	})
}

func (l *Ledger) Reset(ctx context.Context, id uint64) error {
	return l.update(id, func(e *entity.BrokerLedgerEntry) {
		e.RemovalState = entity.RemovalNotRequested
		e.SubmissionDate = nil
	})
}

func (l *Ledger) Insert(ctx context.Context, name, url string) (*entity.BrokerLedgerEntry, error) {
	l.insertMu.Lock()
	defer l.insertMu.Unlock()

	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	var next uint64 = 1
	if len(all) > 0 {
		next = all[len(all)-1].ID + 1
	}

	entry := entity.BrokerLedgerEntry{
		ID:           next,
		Name:         name,
		URL:          url,
		RemovalState: entity.RemovalNotSubmitted,
	}
	if err := l.store.Insert(entry.ID, &entry); err != nil {
		return nil, fmt.Errorf("failed to insert broker: %w", err)
	}

	l.logger.Debug("Broker inserted", "broker_id", entry.ID, "name", name)
	return &entry, nil
}

func (l *Ledger) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

func (l *Ledger) update(id uint64, mutate func(*entity.BrokerLedgerEntry)) error {
	var entry entity.BrokerLedgerEntry
	if err := l.store.Get(id, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %d", entity.ErrBrokerNotFound, id)
		}
		return fmt.Errorf("failed to get broker %d: %w", id, err)
	}

	mutate(&entry)

	if err := l.store.Update(id, &entry); err != nil {
		return fmt.Errorf("failed to update broker %d: %w", id, err)
	}
	return nil
}
