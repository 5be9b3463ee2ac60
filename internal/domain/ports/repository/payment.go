package repository

import (
	"context"

	"course-payments/internal/domain/model"
)

type PaymentRepository interface {
	// CreateOrComplete inserts the completed payment, or — when a payment
	// for the same checkout session or provider reference already exists —
	// promotes it to COMPLETED if it is not there yet. A payment that is
	// already COMPLETED is left untouched. The returned flag reports
	// whether a new row was created, which is how replays are detected.
	CreateOrComplete(ctx context.Context, tx Tx, p *model.Payment) (created bool, err error)
	FindByProviderRef(ctx context.Context, tx Tx, providerRef string) (*model.Payment, error)
	FindByCheckoutSessionID(ctx context.Context, tx Tx, sessionID string) (*model.Payment, error)
	// MarkRefunded is governance-critical; the audit entry commits in the
	// same transaction.
	MarkRefunded(ctx context.Context, tx Tx, id string) error
}
