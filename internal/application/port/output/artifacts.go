package output

import (
	"context"

	"removal-agent/internal/domain/entity"
)

// ScreenshotSinkPort persists a capture and returns its path. Paths are
// unique per call; existing artifacts are never overwritten.
type ScreenshotSinkPort interface {
	Save(ctx context.Context, shot *entity.Screenshot, brokerName, step string) (string, error)
}
