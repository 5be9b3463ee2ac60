package repository

import (
	"context"

	"course-payments/internal/domain/model"
)

type CourseRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Course) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Course, error)
}

type FeatureRepository interface {
	Save(ctx context.Context, tx Tx, f *model.Feature) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Feature, error)
}
