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

var (
	_ repository.CourseRepository  = (*courseRepo)(nil)
	_ repository.FeatureRepository = (*featureRepo)(nil)
)

type courseRepo struct{ pool *pgxpool.Pool }

func NewCourseRepo(pool *pgxpool.Pool) *courseRepo {
	return &courseRepo{pool: pool}
}

func (r *courseRepo) Save(ctx context.Context, tx repository.Tx, c *model.Course) error {
	const q = `
INSERT INTO courses (id, owner_id, title, price_minor, currency, published, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  title=$3, price_minor=$4, currency=$5, published=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.OwnerID, c.Title, c.PriceMinor, c.Currency, c.Published, c.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *courseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	const q = `SELECT id, owner_id, title, price_minor, currency, published, created_at FROM courses WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	c := &model.Course{}
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.PriceMinor, &c.Currency, &c.Published, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

type featureRepo struct{ pool *pgxpool.Pool }

func NewFeatureRepo(pool *pgxpool.Pool) *featureRepo {
	return &featureRepo{pool: pool}
}

func (r *featureRepo) Save(ctx context.Context, tx repository.Tx, f *model.Feature) error {
	const q = `
INSERT INTO features (id, slug, title, price_minor, currency, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  slug=$2, title=$3, price_minor=$4, currency=$5, active=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, f.ID, f.Slug, f.Title, f.PriceMinor, f.Currency, f.Active, f.CreatedAt)
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

func (r *featureRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Feature, error) {
	const q = `SELECT id, slug, title, price_minor, currency, active, created_at FROM features WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	f := &model.Feature{}
	if err := row.Scan(&f.ID, &f.Slug, &f.Title, &f.PriceMinor, &f.Currency, &f.Active, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return f, nil
}
