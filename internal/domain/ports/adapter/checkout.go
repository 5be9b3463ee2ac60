package adapter

import "context"

// ProviderSession is the provider-agnostic view of one hosted checkout
// session as the provider reports it. Metadata comes back untrusted and is
// re-validated by the caller before anything branches on it.
type ProviderSession struct {
	ID          string // provider session id
	PaymentRef  string // provider payment reference; "" until known
	Settled     bool   // payment actually captured
	AmountMinor int64
	Currency    string
	LiveMode    bool
	RedirectURL string
	Metadata    map[string]string
}

// CreateSessionInput describes the hosted session to open with the provider.
type CreateSessionInput struct {
	Title       string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
}

// CheckoutGateway is the hex port for hosted-checkout payment providers.
type CheckoutGateway interface {
	Name() string

	// CreateSession opens a provider-hosted payment session and returns its
	// provider-side representation including the redirect URL.
	CreateSession(ctx context.Context, in CreateSessionInput) (*ProviderSession, error)

	// FetchSession re-reads the authoritative session state from the
	// provider. Reconciliation always calls this instead of trusting the
	// caller-supplied status.
	FetchSession(ctx context.Context, providerSessionID string) (*ProviderSession, error)
}
