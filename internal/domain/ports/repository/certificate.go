package repository

import (
	"context"

	"course-payments/internal/domain/model"
)

type CertificateRepository interface {
	// InsertIfAbsent issues the certificate unless one already exists for
	// the (user, course) pair. Same constraint-arbitrated semantics as
	// EnrollmentRepository.InsertIfAbsent.
	InsertIfAbsent(ctx context.Context, tx Tx, c *model.Certificate) (created bool, err error)
	FindByUserAndCourse(ctx context.Context, tx Tx, userID, courseID string) (*model.Certificate, error)
}
