package model

import (
	"time"

	"course-payments/internal/domain"

	"github.com/google/uuid"
)

// Certificate is issued once per (user, course) when progress reaches 100%.
// Two lesson-completion calls may both observe 100% concurrently; the store
// constraint guarantees a single certificate survives.
type Certificate struct {
	ID       string
	UserID   string
	CourseID string
	IssuedAt time.Time
}

func NewCertificate(userID, courseID string) (*Certificate, error) {
	if userID == "" || courseID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Certificate{
		ID:       uuid.NewString(),
		UserID:   userID,
		CourseID: courseID,
		IssuedAt: time.Now(),
	}, nil
}
