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
	"course-payments/internal/domain/ports/adapter"
	"course-payments/internal/domain/ports/repository"
	"course-payments/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase converts a provider "payment settled" signal into durable
// local state: the checkout session marked completed, a COMPLETED payment,
// and the enrollment (or feature grant) the buyer paid for — all in one
// transaction.
//
// Two independent callers race to finalize the same session: the buyer's
// browser after redirect (Confirm) and the provider's webhook delivery
// (HandleProviderEvent). Both run the same algorithm; whichever transaction
// commits first creates the rows and the loser's inserts degrade to no-ops
// arbitrated by the store's uniqueness constraints. Replays succeed and
// report created=false.
type ReconcileUseCase interface {
	// Confirm is the buyer-triggered entry point. callerBuyerID is the
	// authenticated identity and must match the session's buyer.
	Confirm(ctx context.Context, providerSessionID, callerBuyerID string) (*model.ReconcileResult, error)
	// HandleProviderEvent is the webhook entry point. The payload was
	// already authenticated against the provider's signing scheme.
	HandleProviderEvent(ctx context.Context, providerSessionID string) (*model.ReconcileResult, error)
}

type reconcileUC struct {
	sessions    repository.CheckoutSessionRepository
	payments    repository.PaymentRepository
	enrollments repository.EnrollmentRepository
	grants      repository.FeatureGrantRepository
	users       repository.UserRepository
	eligibility EligibilityUseCase
	gateway     adapter.CheckoutGateway
	tm          repository.TransactionManager
	audit       AuditUseCase
	notify      NotificationUseCase
	log         *zerolog.Logger
}

func NewReconcileUseCase(
	sessions repository.CheckoutSessionRepository,
	payments repository.PaymentRepository,
	enrollments repository.EnrollmentRepository,
	grants repository.FeatureGrantRepository,
	users repository.UserRepository,
	eligibility EligibilityUseCase,
	gateway adapter.CheckoutGateway,
	tm repository.TransactionManager,
	audit AuditUseCase,
	notify NotificationUseCase,
	logger *zerolog.Logger,
) *reconcileUC {
	return &reconcileUC{
		sessions:    sessions,
		payments:    payments,
		enrollments: enrollments,
		grants:      grants,
		users:       users,
		eligibility: eligibility,
		gateway:     gateway,
		tm:          tm,
		audit:       audit,
		notify:      notify,
		log:         logger,
	}
}

const notifyTimeout = 10 * time.Second

func (u *reconcileUC) Confirm(ctx context.Context, providerSessionID, callerBuyerID string) (*model.ReconcileResult, error) {
	if callerBuyerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.reconcile(ctx, providerSessionID, callerBuyerID)
}

func (u *reconcileUC) HandleProviderEvent(ctx context.Context, providerSessionID string) (*model.ReconcileResult, error) {
	return u.reconcile(ctx, providerSessionID, "")
}

// reconcile is the single algorithm behind both entry points. It performs
// zero writes before the transaction and everything inside it, so a failure
// at any step leaves no partial state and the attempt is safe to retry.
func (u *reconcileUC) reconcile(ctx context.Context, providerSessionID, callerBuyerID string) (res *model.ReconcileResult, err error) {
	start := time.Now()
	outcome := "error"
	defer func() { metrics.ObserveReconcile(outcome, time.Since(start)) }()

	local, err := u.sessions.FindByProviderSessionID(ctx, repository.NoTX, providerSessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			outcome = "session_not_found"
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	// Never trust the caller-supplied status: re-fetch the authoritative
	// session state from the provider.
	ps, err := u.gateway.FetchSession(ctx, providerSessionID)
	if err != nil {
		outcome = "gateway_error"
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if !ps.Settled {
		outcome = "unsettled"
		return nil, domain.ErrPaymentNotSettled
	}

	meta, err := model.ParseCheckoutMetadata(ps.Metadata)
	if err != nil {
		outcome = "metadata_invalid"
		return nil, err
	}
	// The metadata round-tripped through the provider; it must agree with
	// the local row it claims to settle.
	if meta.BuyerID != local.BuyerID || (local.PurchasableID() != "" && meta.PurchasableID != local.PurchasableID()) {
		outcome = "metadata_invalid"
		return nil, fmt.Errorf("%w: metadata does not match local session", domain.ErrMetadataInvalid)
	}

	if callerBuyerID != "" && callerBuyerID != meta.BuyerID {
		outcome = "buyer_mismatch"
		u.audit.Record(ctx, callerBuyerID, model.AuditBuyerMismatch, "checkout_session", local.ID, map[string]string{
			"provider_session_id": providerSessionID,
			"session_buyer_id":    meta.BuyerID,
		})
		return nil, domain.ErrBuyerMismatch
	}

	res = &model.ReconcileResult{TestMode: !ps.LiveMode}
	payment, err := model.NewCompletedPayment(local, ps.PaymentRef, res.TestMode)
	if err != nil {
		return nil, err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.sessions.MarkCompleted(ctx, tx, providerSessionID); err != nil {
			return fmt.Errorf("complete session: %w", err)
		}

		switch meta.PurchasableType {
		case model.PurchasableCourse:
			e, err := model.NewEnrollment(meta.BuyerID, meta.PurchasableID)
			if err != nil {
				return err
			}
			created, err := u.enrollments.InsertIfAbsent(ctx, tx, e)
			if err != nil {
				return fmt.Errorf("insert enrollment: %w", err)
			}
			res.EnrollmentCreated = created
		case model.PurchasableFeature:
			g, err := model.NewFeatureGrant(meta.BuyerID, meta.PurchasableID)
			if err != nil {
				return err
			}
			created, err := u.grants.InsertIfAbsent(ctx, tx, g)
			if err != nil {
				return fmt.Errorf("insert feature grant: %w", err)
			}
			res.EnrollmentCreated = created
		case model.PurchasableSubscription:
			// Entitlement for subscriptions runs on its own lifecycle;
			// only the financial record is written here.
		}

		created, err := u.payments.CreateOrComplete(ctx, tx, payment)
		if err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}
		res.PaymentCreated = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.PaymentCreated || res.EnrollmentCreated {
		outcome = "created"
	} else {
		outcome = "replayed"
	}

	// Side effects run strictly after commit and are best-effort: the
	// financial/access state is already correct, so their failure is
	// logged and swallowed.
	u.afterCommit(local, meta, payment, res, callerBuyerID)

	u.log.Info().
		Str("provider_session_id", providerSessionID).
		Bool("payment_created", res.PaymentCreated).
		Bool("enrollment_created", res.EnrollmentCreated).
		Bool("test_mode", res.TestMode).
		Msg("checkout session reconciled")
	return res, nil
}

func (u *reconcileUC) afterCommit(local *model.CheckoutSession, meta model.CheckoutMetadata, payment *model.Payment, res *model.ReconcileResult, actorID string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)

	if res.PaymentCreated {
		metrics.IncPayment(string(model.PaymentStatusCompleted))
		metrics.AddPaymentRevenue(payment.Currency, payment.AmountMinor)
		u.audit.Record(ctx, actorID, model.AuditPaymentCompleted, "payment", payment.ID, map[string]string{
			"provider_session_id": local.ProviderSessionID,
			"amount_minor":        fmt.Sprint(payment.AmountMinor),
			"currency":            payment.Currency,
		})
	}
	if res.EnrollmentCreated {
		action := model.AuditEnrollmentCreated
		if meta.PurchasableType == model.PurchasableFeature {
			action = model.AuditFeatureGranted
		}
		u.audit.Record(ctx, actorID, action, string(meta.PurchasableType), meta.PurchasableID, map[string]string{
			"buyer_id": meta.BuyerID,
		})
	}

	if !res.PaymentCreated {
		cancel()
		return
	}

	go func() {
		defer cancel()
		buyer, err := u.users.FindByID(ctx, repository.NoTX, meta.BuyerID)
		if err != nil {
			u.log.Warn().Err(err).Str("buyer_id", meta.BuyerID).Msg("notification skipped: buyer lookup failed")
			return
		}
		title := string(meta.PurchasableType)
		if p, err := u.eligibility.ResolvePurchasable(ctx, meta.PurchasableID); err == nil {
			title = p.Title
		}
		u.notify.NotifyPaymentCompleted(ctx, payment, buyer, title)
	}()
}
