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

var (
	_ repository.EnrollmentRepository   = (*enrollmentRepo)(nil)
	_ repository.FeatureGrantRepository = (*featureGrantRepo)(nil)
)

type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

const enrollmentColumns = `id, user_id, course_id, status, progress_percent, completed_at, created_at`

func (r *enrollmentRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, e *model.Enrollment) (bool, error) {
	const q = `
INSERT INTO enrollments (id, user_id, course_id, status, progress_percent, completed_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (user_id, course_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.CourseID, e.Status, e.ProgressPercent, e.CompletedAt, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *enrollmentRepo) FindByUserAndCourse(ctx context.Context, tx repository.Tx, userID, courseID string) (*model.Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id=$1 AND course_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, courseID)
	if err != nil {
		return nil, err
	}
	e := &model.Enrollment{}
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.ProgressPercent, &e.CompletedAt, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

// UpdateProgress never lowers recorded progress; stale lesson-completion
// events arriving out of order are absorbed by GREATEST.
func (r *enrollmentRepo) UpdateProgress(ctx context.Context, tx repository.Tx, userID, courseID string, percent int) error {
	const q = `
UPDATE enrollments
   SET progress_percent=GREATEST(progress_percent, $3)
 WHERE user_id=$1 AND course_id=$2;`

	cmd, err := execSQL(ctx, r.pool, tx, q, userID, courseID, percent)
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

func (r *enrollmentRepo) MarkCompleted(ctx context.Context, tx repository.Tx, userID, courseID string, at time.Time) (bool, error) {
	const q = `
UPDATE enrollments
   SET status='COMPLETED', completed_at=$3
 WHERE user_id=$1 AND course_id=$2
   AND status='ACTIVE';`

	cmd, err := execSQL(ctx, r.pool, tx, q, userID, courseID, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

type featureGrantRepo struct{ pool *pgxpool.Pool }

func NewFeatureGrantRepo(pool *pgxpool.Pool) *featureGrantRepo {
	return &featureGrantRepo{pool: pool}
}

func (r *featureGrantRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, g *model.FeatureGrant) (bool, error) {
	const q = `
INSERT INTO feature_grants (id, user_id, feature_id, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id, feature_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, g.ID, g.UserID, g.FeatureID, g.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *featureGrantRepo) Exists(ctx context.Context, tx repository.Tx, userID, featureID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM feature_grants WHERE user_id=$1 AND feature_id=$2);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, featureID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}
