package ports

import "context"

// Notifier hands an email to the notification pipeline. Implementations are
// fire-and-forget: Notify never blocks on delivery and never reports it.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string)
}
