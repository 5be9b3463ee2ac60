package payment

import (
	"context"
	"fmt"
	"sync"

	"course-payments/internal/domain"
	"course-payments/internal/domain/ports/adapter"
)

var _ adapter.CheckoutGateway = (*NoopGateway)(nil)

// NoopGateway is an in-memory stand-in for a real provider, used in dev
// mode and end-to-end tests. Sessions start unsettled; tests settle them
// explicitly with Settle.
type NoopGateway struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*adapter.ProviderSession
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{sessions: make(map[string]*adapter.ProviderSession)}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateSession(_ context.Context, in adapter.CreateSessionInput) (*adapter.ProviderSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("noop_cs_%04d", g.seq)

	md := make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		md[k] = v
	}
	s := &adapter.ProviderSession{
		ID:          id,
		AmountMinor: in.AmountMinor,
		Currency:    in.Currency,
		RedirectURL: "https://pay.example/" + id,
		Metadata:    md,
	}
	g.sessions[id] = s
	return s, nil
}

func (g *NoopGateway) FetchSession(_ context.Context, providerSessionID string) (*adapter.ProviderSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[providerSessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Settle marks the session paid with the given payment reference.
func (g *NoopGateway) Settle(providerSessionID, paymentRef string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[providerSessionID]; ok {
		s.Settled = true
		s.PaymentRef = paymentRef
	}
}
