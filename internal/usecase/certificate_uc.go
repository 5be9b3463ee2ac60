package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/repository"
	"course-payments/internal/infra/metrics"
)

// Compile-time check
var _ CertificateUseCase = (*certificateUC)(nil)

// CertificateUseCase reacts to course progress updates and issues the
// completion certificate exactly once when progress first reaches 100%.
type CertificateUseCase interface {
	// OnProgressUpdated records the new progress for the buyer's enrollment
	// and, at 100%, marks the enrollment completed and issues the
	// certificate. Returns the certificate issued by THIS call, or nil when
	// nothing new was issued (progress below 100% or certificate already
	// present).
	OnProgressUpdated(ctx context.Context, userID, courseID string, percent int) (*model.Certificate, error)
}

type certificateUC struct {
	enrollments  repository.EnrollmentRepository
	certificates repository.CertificateRepository
	tm           repository.TransactionManager
	audit        AuditUseCase
	log          *zerolog.Logger
}

func NewCertificateUseCase(
	enrollments repository.EnrollmentRepository,
	certificates repository.CertificateRepository,
	tm repository.TransactionManager,
	audit AuditUseCase,
	logger *zerolog.Logger,
) *certificateUC {
	return &certificateUC{
		enrollments:  enrollments,
		certificates: certificates,
		tm:           tm,
		audit:        audit,
		log:          logger,
	}
}

func (u *certificateUC) OnProgressUpdated(ctx context.Context, userID, courseID string, percent int) (*model.Certificate, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: progress percent out of range", domain.ErrInvalidArgument)
	}
	if _, err := u.enrollments.FindByUserAndCourse(ctx, repository.NoTX, userID, courseID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotEnrolled
		}
		return nil, err
	}

	cert, err := model.NewCertificate(userID, courseID)
	if err != nil {
		return nil, err
	}

	var issued bool
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.enrollments.UpdateProgress(ctx, tx, userID, courseID, percent); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		if percent < 100 {
			return nil
		}
		if _, err := u.enrollments.MarkCompleted(ctx, tx, userID, courseID, time.Now()); err != nil {
			return fmt.Errorf("complete enrollment: %w", err)
		}
		created, err := u.certificates.InsertIfAbsent(ctx, tx, cert)
		if err != nil {
			return fmt.Errorf("insert certificate: %w", err)
		}
		issued = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !issued {
		return nil, nil
	}

	metrics.IncCertificateIssued()
	u.audit.Record(ctx, userID, model.AuditCertificateIssued, "certificate", cert.ID, map[string]string{
		"course_id": courseID,
	})
	u.log.Info().
		Str("user_id", userID).
		Str("course_id", courseID).
		Str("certificate_id", cert.ID).
		Msg("certificate issued")
	return cert, nil
}
