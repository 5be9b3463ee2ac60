package adapter

import "context"

// Notifier is the hex port for operational notification channels.
// Delivery is best-effort: a failed send is logged by the caller and never
// propagates into the flow that triggered it.
type Notifier interface {
	Name() string
	Send(ctx context.Context, chatID int64, text string) error
}
