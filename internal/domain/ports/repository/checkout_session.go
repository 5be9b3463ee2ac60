package repository

import (
	"context"
	"time"

	"course-payments/internal/domain/model"
)

type CheckoutSessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.CheckoutSession) error
	FindByProviderSessionID(ctx context.Context, tx Tx, providerSessionID string) (*model.CheckoutSession, error)
	// MarkCompleted transitions the session identified by the provider
	// session id from pending to completed. It reports whether this call
	// performed the transition; a session already completed is a no-op,
	// not an error, so replayed confirmations pass straight through.
	MarkCompleted(ctx context.Context, tx Tx, providerSessionID string) (bool, error)
	// ListPendingOlderThan feeds the stale-session sweeper.
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.CheckoutSession, error)
}
