package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, provider_payment_ref, provider, buyer_id, purchasable_type, course_id, feature_id, amount_minor, currency, status, test_mode, checkout_session_id, created_at, updated_at, paid_at`

// CreateOrComplete relies on two uniqueness constraints as its concurrency
// control: checkout_session_id (one payment per session) and
// provider_payment_ref (one payment per provider charge, the backstop
// against the same charge arriving under two local sessions). The bare
// ON CONFLICT covers both, so neither duplicate raises a statement error;
// an error here would abort the caller's open transaction.
func (r *paymentRepo) CreateOrComplete(ctx context.Context, tx repository.Tx, p *model.Payment) (bool, error) {
	const ins = `
INSERT INTO payments (
  id, provider_payment_ref, provider, buyer_id, purchasable_type, course_id, feature_id,
  amount_minor, currency, status, test_mode, checkout_session_id, created_at, updated_at, paid_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, ins,
		p.ID, p.ProviderPaymentRef, p.Provider, p.BuyerID, p.PurchasableType, p.CourseID, p.FeatureID,
		p.AmountMinor, p.Currency, p.Status, p.TestMode, p.CheckoutSessionID, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	if cmd.RowsAffected() >= 1 {
		return true, nil
	}

	// A payment for this session exists. Promote it to COMPLETED unless it
	// already is; COMPLETED rows are terminal and left untouched.
	const upd = `
UPDATE payments
   SET status='COMPLETED',
       provider_payment_ref=COALESCE(provider_payment_ref, $2),
       paid_at=COALESCE(paid_at, NOW()),
       updated_at=NOW()
 WHERE checkout_session_id=$1
   AND status <> 'COMPLETED';`

	if _, err := execSQL(ctx, r.pool, tx, upd, p.CheckoutSessionID, p.ProviderPaymentRef); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return false, nil
}

func (r *paymentRepo) FindByProviderRef(ctx context.Context, tx repository.Tx, providerRef string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_ref=$1;`
	return r.scanOne(ctx, tx, q, providerRef)
}

func (r *paymentRepo) FindByCheckoutSessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_session_id=$1;`
	return r.scanOne(ctx, tx, q, sessionID)
}

func (r *paymentRepo) scanOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	p := &model.Payment{}
	err = row.Scan(&p.ID, &p.ProviderPaymentRef, &p.Provider, &p.BuyerID, &p.PurchasableType,
		&p.CourseID, &p.FeatureID, &p.AmountMinor, &p.Currency, &p.Status, &p.TestMode,
		&p.CheckoutSessionID, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE payments SET status='REFUNDED', updated_at=NOW() WHERE id=$1 AND status='COMPLETED';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
