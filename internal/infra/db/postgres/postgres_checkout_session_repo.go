package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/repository"
)

var _ repository.CheckoutSessionRepository = (*checkoutSessionRepo)(nil)

type checkoutSessionRepo struct{ pool *pgxpool.Pool }

func NewCheckoutSessionRepo(pool *pgxpool.Pool) *checkoutSessionRepo {
	return &checkoutSessionRepo{pool: pool}
}

const sessionColumns = `id, provider_session_id, provider, buyer_id, purchasable_type, course_id, feature_id, amount_minor, currency, redirect_url, status, metadata, created_at, updated_at`

func (r *checkoutSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.CheckoutSession) error {
	const q = `
INSERT INTO checkout_sessions (
  id, provider_session_id, provider, buyer_id, purchasable_type, course_id, feature_id,
  amount_minor, currency, redirect_url, status, metadata, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.ProviderSessionID, s.Provider, s.BuyerID, s.PurchasableType, s.CourseID, s.FeatureID,
		s.AmountMinor, s.Currency, s.RedirectURL, s.Status, s.Metadata, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *checkoutSessionRepo) FindByProviderSessionID(ctx context.Context, tx repository.Tx, providerSessionID string) (*model.CheckoutSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE provider_session_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, providerSessionID)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

// MarkCompleted is guarded by the status predicate so it reports the
// transition exactly once regardless of how many reconcilers race on the
// same session.
func (r *checkoutSessionRepo) MarkCompleted(ctx context.Context, tx repository.Tx, providerSessionID string) (bool, error) {
	const q = `
UPDATE checkout_sessions
   SET status='completed', updated_at=NOW()
 WHERE provider_session_id=$1
   AND status='pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, providerSessionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *checkoutSessionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.CheckoutSession, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.CheckoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func scanSession(row pgx.Row) (*model.CheckoutSession, error) {
	s := &model.CheckoutSession{}
	err := row.Scan(&s.ID, &s.ProviderSessionID, &s.Provider, &s.BuyerID, &s.PurchasableType,
		&s.CourseID, &s.FeatureID, &s.AmountMinor, &s.Currency, &s.RedirectURL, &s.Status,
		&s.Metadata, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
