package model

import (
	"fmt"

	"course-payments/internal/domain"

	"github.com/google/uuid"
)

// Metadata keys attached to every provider checkout session. They are the
// only channel that ties a provider session back to platform entities, so
// what comes back from the provider is treated as untrusted input and parsed
// through ParseCheckoutMetadata before anything branches on it.
const (
	MetaBuyerID         = "buyer_id"
	MetaPurchasableID   = "purchasable_id"
	MetaPurchasableType = "purchasable_type"
)

// CheckoutMetadata is the validated, fully-typed form of the provider
// metadata blob.
type CheckoutMetadata struct {
	BuyerID         string
	PurchasableID   string
	PurchasableType PurchasableType
}

// ParseCheckoutMetadata decodes and validates the raw provider metadata.
// Every field is checked: ids must be UUIDs, the type must be one of the
// closed enumeration. Any missing or malformed field fails the whole parse.
func ParseCheckoutMetadata(raw map[string]string) (CheckoutMetadata, error) {
	var m CheckoutMetadata
	if raw == nil {
		return m, fmt.Errorf("%w: no metadata", domain.ErrMetadataInvalid)
	}
	buyerID := raw[MetaBuyerID]
	if _, err := uuid.Parse(buyerID); err != nil {
		return m, fmt.Errorf("%w: bad %s", domain.ErrMetadataInvalid, MetaBuyerID)
	}
	purchasableID := raw[MetaPurchasableID]
	if _, err := uuid.Parse(purchasableID); err != nil {
		return m, fmt.Errorf("%w: bad %s", domain.ErrMetadataInvalid, MetaPurchasableID)
	}
	ptype := PurchasableType(raw[MetaPurchasableType])
	if !ptype.Valid() {
		return m, fmt.Errorf("%w: bad %s", domain.ErrMetadataInvalid, MetaPurchasableType)
	}
	m.BuyerID = buyerID
	m.PurchasableID = purchasableID
	m.PurchasableType = ptype
	return m, nil
}

// Map renders the metadata for attaching to a provider session request.
func (m CheckoutMetadata) Map() map[string]string {
	return map[string]string{
		MetaBuyerID:         m.BuyerID,
		MetaPurchasableID:   m.PurchasableID,
		MetaPurchasableType: string(m.PurchasableType),
	}
}
