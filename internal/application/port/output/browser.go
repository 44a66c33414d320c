package output

import (
	"context"

	"removal-agent/internal/domain/entity"
)

// BrowserPort hands out isolated sessions. Every session owns its own browser
// context and must be closed by the caller.
type BrowserPort interface {
	NewSession(ctx context.Context) (BrowserSession, error)
	Close()
}

type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string) (any, error)
	SubmitNative(ctx context.Context, formSelector string) error
	Screenshot(ctx context.Context) (*entity.Screenshot, error)
	CurrentURL() string
	Close() error
}
