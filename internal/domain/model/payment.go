package model

import (
	"time"

	"course-payments/internal/domain"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment records one finalized money movement. At most one row exists per
// provider payment reference and per originating checkout session; COMPLETED
// is terminal and is never overwritten by a replayed provider signal.
type Payment struct {
	ID                 string
	ProviderPaymentRef *string // unique; nil until the provider reports it
	Provider           string
	BuyerID            string
	PurchasableType    PurchasableType
	CourseID           *string
	FeatureID          *string
	AmountMinor        int64
	Currency           string
	Status             PaymentStatus
	TestMode           bool
	CheckoutSessionID  string // local CheckoutSession.ID this payment settles
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaidAt             *time.Time
}

// NewCompletedPayment builds the payment row the reconciler inserts once the
// provider reports the session settled. Amount and currency come from the
// local checkout session, not from the confirmation-time provider response,
// so recorded payments keep the price in force when checkout began.
func NewCompletedPayment(s *CheckoutSession, providerRef string, testMode bool) (*Payment, error) {
	if s.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	p := &Payment{
		ID:                uuid.NewString(),
		Provider:          s.Provider,
		BuyerID:           s.BuyerID,
		PurchasableType:   s.PurchasableType,
		CourseID:          s.CourseID,
		FeatureID:         s.FeatureID,
		AmountMinor:       s.AmountMinor,
		Currency:          s.Currency,
		Status:            PaymentStatusCompleted,
		TestMode:          testMode,
		CheckoutSessionID: s.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
		PaidAt:            &now,
	}
	if providerRef != "" {
		p.ProviderPaymentRef = &providerRef
	}
	return p, nil
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }
