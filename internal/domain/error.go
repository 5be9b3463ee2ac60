package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrPaymentNotSettled  = errors.New("payment not yet confirmed by provider")
	ErrBuyerMismatch      = errors.New("session belongs to a different buyer")
	ErrMetadataInvalid    = errors.New("checkout session metadata is invalid")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrNotEnrolled        = errors.New("no enrollment for buyer and course")
	ErrForbidden          = errors.New("operation requires administrator role")

	// Infrastructure errors
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// NotEligibleError is returned by checkout initiation when the eligibility
// check denies the purchase. It carries the machine-readable reason code so
// the API layer can surface it without string matching. A denial is a normal
// business outcome; infrastructure failures during the check are returned as
// plain errors instead.
type NotEligibleError struct {
	Reason  string
	Message string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s", e.Reason)
}
