package input

import (
	"context"

	"removal-agent/internal/domain/entity"
)

type WorkflowRunner interface {
	Run(ctx context.Context, target entity.Target) (*entity.WorkflowState, error)
}
