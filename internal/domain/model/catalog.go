package model

import (
	"time"

	"course-payments/internal/domain"

	"github.com/google/uuid"
)

// PurchasableType is the closed set of things a checkout session can buy.
// It is embedded in provider metadata and decides which local entities the
// reconciler creates.
type PurchasableType string

const (
	PurchasableCourse       PurchasableType = "course"
	PurchasableFeature      PurchasableType = "feature"
	PurchasableSubscription PurchasableType = "subscription"
)

func (t PurchasableType) Valid() bool {
	switch t {
	case PurchasableCourse, PurchasableFeature, PurchasableSubscription:
		return true
	}
	return false
}

// Course is the primary purchasable. Price is captured in minor currency
// units at checkout time; later price edits never affect recorded payments.
type Course struct {
	ID         string
	OwnerID    string // teacher account that published the course
	Title      string
	PriceMinor int64
	Currency   string
	Published  bool
	CreatedAt  time.Time
}

func NewCourse(id, ownerID, title string, priceMinor int64, currency string) (*Course, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if ownerID == "" || title == "" || priceMinor <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Course{
		ID:         id,
		OwnerID:    ownerID,
		Title:      title,
		PriceMinor: priceMinor,
		Currency:   currency,
		CreatedAt:  time.Now(),
	}, nil
}

func (c *Course) IsZero() bool { return c == nil || c.ID == "" }

// Feature is a standalone one-time purchasable (e.g. an extra teacher slot
// or a custom-domain unlock), bought outside any course.
type Feature struct {
	ID         string
	Slug       string
	Title      string
	PriceMinor int64
	Currency   string
	Active     bool
	CreatedAt  time.Time
}

func NewFeature(id, slug, title string, priceMinor int64, currency string) (*Feature, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if slug == "" || title == "" || priceMinor <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Feature{
		ID:         id,
		Slug:       slug,
		Title:      title,
		PriceMinor: priceMinor,
		Currency:   currency,
		Active:     true,
		CreatedAt:  time.Now(),
	}, nil
}

func (f *Feature) IsZero() bool { return f == nil || f.ID == "" }

// Purchasable is the resolved view the checkout flow works with, regardless
// of whether the underlying record is a course or a feature.
type Purchasable struct {
	Type       PurchasableType
	ID         string
	Title      string
	PriceMinor int64
	Currency   string
}
