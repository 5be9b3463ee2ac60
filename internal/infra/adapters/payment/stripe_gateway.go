package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"

	"course-payments/internal/domain/ports/adapter"
)

var _ adapter.CheckoutGateway = (*StripeGateway)(nil)

// StripeGateway implements adapter.CheckoutGateway on Stripe hosted checkout.
// A session is settled only when Stripe reports payment_status=paid; the
// session status field alone says nothing about money movement (async
// payment methods complete the session before funds clear).
type StripeGateway struct {
	sc         *client.API
	successURL string
	cancelURL  string
	log        *zerolog.Logger
}

func NewStripeGateway(secretKey, successURL, cancelURL string, logger *zerolog.Logger) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{
		sc:         sc,
		successURL: successURL,
		cancelURL:  cancelURL,
		log:        logger,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateSession(ctx context.Context, in adapter.CreateSessionInput) (*adapter.ProviderSession, error) {
	successURL := in.SuccessURL
	if successURL == "" {
		successURL = g.successURL
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = g.cancelURL
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(in.Currency)),
					UnitAmount: stripe.Int64(in.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(in.Title),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.Metadata = in.Metadata

	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	g.log.Debug().Str("session_id", s.ID).Msg("stripe checkout session created")
	return toProviderSession(s), nil
}

func (g *StripeGateway) FetchSession(ctx context.Context, providerSessionID string) (*adapter.ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.sc.CheckoutSessions.Get(providerSessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: fetch checkout session %s: %w", providerSessionID, err)
	}
	return toProviderSession(s), nil
}

func toProviderSession(s *stripe.CheckoutSession) *adapter.ProviderSession {
	out := &adapter.ProviderSession{
		ID:          s.ID,
		Settled:     s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountMinor: s.AmountTotal,
		Currency:    strings.ToUpper(string(s.Currency)),
		LiveMode:    s.Livemode,
		RedirectURL: s.URL,
		Metadata:    s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentRef = s.PaymentIntent.ID
	}
	return out
}
