package notify

import (
	"context"

	"github.com/rs/zerolog"

	"course-payments/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of delivering. Used in dev mode when no
// Telegram token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) Name() string { return "noop" }

func (n *NoopNotifier) Send(_ context.Context, chatID int64, text string) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("notification (noop)")
	return nil
}
