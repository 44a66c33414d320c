package output

import (
	"context"

	"removal-agent/internal/domain/entity"
)

type CaptchaSolverPort interface {
	Solve(ctx context.Context, req entity.CaptchaRequest) (*entity.CaptchaSolution, error)
}
