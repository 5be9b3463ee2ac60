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

var _ repository.CertificateRepository = (*certificateRepo)(nil)

type certificateRepo struct{ pool *pgxpool.Pool }

func NewCertificateRepo(pool *pgxpool.Pool) *certificateRepo {
	return &certificateRepo{pool: pool}
}

func (r *certificateRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, c *model.Certificate) (bool, error) {
	const q = `
INSERT INTO certificates (id, user_id, course_id, issued_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id, course_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.CourseID, c.IssuedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *certificateRepo) FindByUserAndCourse(ctx context.Context, tx repository.Tx, userID, courseID string) (*model.Certificate, error) {
	const q = `SELECT id, user_id, course_id, issued_at FROM certificates WHERE user_id=$1 AND course_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, courseID)
	if err != nil {
		return nil, err
	}
	c := &model.Certificate{}
	if err := row.Scan(&c.ID, &c.UserID, &c.CourseID, &c.IssuedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}
