package model

import (
	"time"

	"course-payments/internal/domain"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment grants a buyer access to a course. At most one row exists per
// (user, course) pair; the uniqueness constraint in the store, not the
// application-level existence check, is what arbitrates concurrent creation.
type Enrollment struct {
	ID              string
	UserID          string
	CourseID        string
	Status          EnrollmentStatus
	ProgressPercent int
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

func NewEnrollment(userID, courseID string) (*Enrollment, error) {
	if userID == "" || courseID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		Status:    EnrollmentStatusActive,
		CreatedAt: time.Now(),
	}, nil
}

func (e *Enrollment) IsZero() bool { return e == nil || e.ID == "" }

// FeatureGrant is the feature-purchase counterpart of Enrollment: one row
// per (user, feature), created exactly once by the reconciler.
type FeatureGrant struct {
	ID        string
	UserID    string
	FeatureID string
	CreatedAt time.Time
}

func NewFeatureGrant(userID, featureID string) (*FeatureGrant, error) {
	if userID == "" || featureID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &FeatureGrant{
		ID:        uuid.NewString(),
		UserID:    userID,
		FeatureID: featureID,
		CreatedAt: time.Now(),
	}, nil
}
