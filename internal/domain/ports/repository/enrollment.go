package repository

import (
	"context"
	"time"

	"course-payments/internal/domain/model"
)

type EnrollmentRepository interface {
	// InsertIfAbsent creates the enrollment unless one already exists for
	// the same (user, course) pair, in which case it reports created=false
	// without error. Concurrent double-inserts are resolved by the store's
	// uniqueness constraint, never by the caller.
	InsertIfAbsent(ctx context.Context, tx Tx, e *model.Enrollment) (created bool, err error)
	FindByUserAndCourse(ctx context.Context, tx Tx, userID, courseID string) (*model.Enrollment, error)
	UpdateProgress(ctx context.Context, tx Tx, userID, courseID string, percent int) error
	// MarkCompleted flips an ACTIVE enrollment to COMPLETED; reports
	// whether this call performed the transition.
	MarkCompleted(ctx context.Context, tx Tx, userID, courseID string, at time.Time) (bool, error)
}

type FeatureGrantRepository interface {
	InsertIfAbsent(ctx context.Context, tx Tx, g *model.FeatureGrant) (created bool, err error)
	Exists(ctx context.Context, tx Tx, userID, featureID string) (bool, error)
}
