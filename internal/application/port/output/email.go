package output

import "context"

type EmailSenderPort interface {
	Send(ctx context.Context, to, subject, body string) error
}
