package model

import (
	"time"

	"course-payments/internal/domain"

	"github.com/google/uuid"
)

type CheckoutSessionStatus string

const (
	CheckoutStatusPending   CheckoutSessionStatus = "pending"
	CheckoutStatusCompleted CheckoutSessionStatus = "completed"
	CheckoutStatusCanceled  CheckoutSessionStatus = "canceled"
	CheckoutStatusExpired   CheckoutSessionStatus = "expired"
)

// CheckoutSession is the local record of one provider-hosted payment attempt,
// keyed by the provider's session id. It is created pending at initiation and
// only the reconciler ever moves it to a terminal status. Rows are never
// deleted.
type CheckoutSession struct {
	ID                string
	ProviderSessionID string
	Provider          string // gateway name, e.g. "stripe"
	BuyerID           string
	PurchasableType   PurchasableType
	CourseID          *string // set iff PurchasableType == course
	FeatureID         *string // set iff PurchasableType == feature
	AmountMinor       int64   // declared price at session creation
	Currency          string
	RedirectURL       string
	Status            CheckoutSessionStatus
	Metadata          map[string]string // provider metadata blob, stored verbatim
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewCheckoutSession(providerSessionID, provider, buyerID string, p *Purchasable, redirectURL string) (*CheckoutSession, error) {
	if providerSessionID == "" || provider == "" || buyerID == "" || p == nil {
		return nil, domain.ErrInvalidArgument
	}
	if !p.Type.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	s := &CheckoutSession{
		ID:                uuid.NewString(),
		ProviderSessionID: providerSessionID,
		Provider:          provider,
		BuyerID:           buyerID,
		PurchasableType:   p.Type,
		AmountMinor:       p.PriceMinor,
		Currency:          p.Currency,
		RedirectURL:       redirectURL,
		Status:            CheckoutStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	switch p.Type {
	case PurchasableCourse:
		id := p.ID
		s.CourseID = &id
	case PurchasableFeature:
		id := p.ID
		s.FeatureID = &id
	}
	return s, nil
}

func (s *CheckoutSession) IsZero() bool { return s == nil || s.ID == "" }

// PurchasableID returns the course or feature id the session pays for.
func (s *CheckoutSession) PurchasableID() string {
	switch {
	case s.CourseID != nil:
		return *s.CourseID
	case s.FeatureID != nil:
		return *s.FeatureID
	}
	return ""
}
