package output

import (
	"context"
	"time"

	"removal-agent/internal/domain/entity"
)

type LedgerPort interface {
	ListPending(ctx context.Context) ([]entity.BrokerLedgerEntry, error)
	MarkRequested(ctx context.Context, id uint64, at time.Time) error
	Reset(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*entity.BrokerLedgerEntry, error)
	List(ctx context.Context) ([]entity.BrokerLedgerEntry, error)
	Insert(ctx context.Context, name, url string) (*entity.BrokerLedgerEntry, error)
	Close() error
}
