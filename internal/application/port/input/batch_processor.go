package input

import (
	"context"

	"removal-agent/internal/domain/entity"
)

type BatchProcessor interface {
	ProcessPending(ctx context.Context) ([]entity.RunOutcome, error)
	Process(ctx context.Context, targets []entity.Target) []entity.RunOutcome
}
