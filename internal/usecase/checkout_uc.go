package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/adapter"
	"course-payments/internal/domain/ports/repository"
	"course-payments/internal/infra/logging"
	"course-payments/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase opens provider-hosted payment sessions.
type CheckoutUseCase interface {
	// Initiate re-checks eligibility, creates the hosted session with the
	// gateway and persists the local pending CheckoutSession keyed by the
	// provider session id. It returns the session and the redirect URL the
	// buyer's browser should be sent to. No local row is written when the
	// gateway call fails.
	Initiate(ctx context.Context, buyerID, purchasableID string) (*model.CheckoutSession, string, error)
}

type checkoutUC struct {
	eligibility EligibilityUseCase
	sessions    repository.CheckoutSessionRepository
	gateway     adapter.CheckoutGateway
	successURL  string
	cancelURL   string
	log         *zerolog.Logger
}

func NewCheckoutUseCase(
	eligibility EligibilityUseCase,
	sessions repository.CheckoutSessionRepository,
	gateway adapter.CheckoutGateway,
	successURL, cancelURL string,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{
		eligibility: eligibility,
		sessions:    sessions,
		gateway:     gateway,
		successURL:  successURL,
		cancelURL:   cancelURL,
		log:         logger,
	}
}

func (u *checkoutUC) Initiate(ctx context.Context, buyerID, purchasableID string) (*model.CheckoutSession, string, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.Initiate")()

	// Eligibility can change between page view and purchase, so it is
	// evaluated again here and never cached.
	decision, err := u.eligibility.Evaluate(ctx, buyerID, purchasableID)
	if err != nil {
		return nil, "", fmt.Errorf("eligibility check: %w", err)
	}
	if !decision.Allowed {
		return nil, "", &domain.NotEligibleError{Reason: decision.Reason, Message: decision.Message}
	}

	p, err := u.eligibility.ResolvePurchasable(ctx, purchasableID)
	if err != nil {
		return nil, "", err
	}

	meta := model.CheckoutMetadata{
		BuyerID:         buyerID,
		PurchasableID:   p.ID,
		PurchasableType: p.Type,
	}
	ps, err := u.gateway.CreateSession(ctx, adapter.CreateSessionInput{
		Title:       p.Title,
		AmountMinor: p.PriceMinor,
		Currency:    p.Currency,
		Metadata:    meta.Map(),
		SuccessURL:  u.successURL,
		CancelURL:   u.cancelURL,
	})
	if err != nil {
		metrics.IncCheckoutInitiated("gateway_error")
		return nil, "", fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	s, err := model.NewCheckoutSession(ps.ID, u.gateway.Name(), buyerID, p, ps.RedirectURL)
	if err != nil {
		return nil, "", err
	}
	s.Metadata = meta.Map()
	if err := u.sessions.Save(ctx, repository.NoTX, s); err != nil {
		return nil, "", fmt.Errorf("persist checkout session: %w", err)
	}

	metrics.IncCheckoutInitiated("ok")
	u.log.Info().
		Str("provider_session_id", s.ProviderSessionID).
		Str("buyer_id", buyerID).
		Str("purchasable_type", string(p.Type)).
		Int64("amount_minor", p.PriceMinor).
		Str("currency", p.Currency).
		Msg("checkout session initiated")
	return s, ps.RedirectURL, nil
}
