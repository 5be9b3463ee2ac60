package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// AdminUseCase covers the governance-critical back-office operations.
// Unlike the reconciler's post-commit audit entries, these record the audit
// entry inside the same transaction as the primary write: a refund or role
// change without its audit record must not exist.
type AdminUseCase interface {
	// RecordRefund marks the payment identified by its provider reference
	// as refunded. The money already moved on the provider side; this
	// records the fact locally.
	RecordRefund(ctx context.Context, actorID, providerPaymentRef string) error
	ChangeUserRole(ctx context.Context, actorID, userID string, role model.UserRole) error
}

type adminUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	tm       repository.TransactionManager
	audit    AuditUseCase
	log      *zerolog.Logger
}

func NewAdminUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	audit AuditUseCase,
	logger *zerolog.Logger,
) *adminUC {
	return &adminUC{users: users, payments: payments, tm: tm, audit: audit, log: logger}
}

func (u *adminUC) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := u.users.FindByID(ctx, repository.NoTX, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if actor.Role != model.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (u *adminUC) RecordRefund(ctx context.Context, actorID, providerPaymentRef string) error {
	if providerPaymentRef == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	payment, err := u.payments.FindByProviderRef(ctx, repository.NoTX, providerPaymentRef)
	if err != nil {
		return err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.MarkRefunded(ctx, tx, payment.ID); err != nil {
			return err
		}
		return u.audit.RecordInTx(ctx, tx, actorID, model.AuditRefundRecorded, "payment", payment.ID, map[string]string{
			"provider_payment_ref": providerPaymentRef,
			"amount_minor":         fmt.Sprintf("%d", payment.AmountMinor),
			"currency":             payment.Currency,
		})
	})
	if err != nil {
		return err
	}

	u.log.Info().
		Str("payment_id", payment.ID).
		Str("actor_id", actorID).
		Msg("refund recorded")
	return nil
}

func (u *adminUC) ChangeUserRole(ctx context.Context, actorID, userID string, role model.UserRole) error {
	if !validRole(role) {
		return domain.ErrInvalidArgument
	}
	if err := u.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	previous, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return err
	}

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.users.UpdateRole(ctx, tx, userID, role); err != nil {
			return err
		}
		return u.audit.RecordInTx(ctx, tx, actorID, model.AuditRoleChanged, "user", userID, map[string]string{
			"from": string(previous.Role),
			"to":   string(role),
		})
	})
}

func validRole(role model.UserRole) bool {
	switch role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
		return true
	}
	return false
}
