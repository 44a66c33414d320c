package output

import (
	"context"

	"removal-agent/internal/domain/entity"
)

type UserInteractionPort interface {
	ShowRunStart(ctx context.Context, target entity.Target)
	ShowStep(ctx context.Context, status entity.Status, entry string)
	ShowRunResult(ctx context.Context, state *entity.WorkflowState)
	ShowBatchSummary(ctx context.Context, outcomes []entity.RunOutcome)
	ShowLedger(ctx context.Context, entries []entity.BrokerLedgerEntry)
}
