package port

import "context"

// Mailer dispatches outbound mail through the configured transport.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
