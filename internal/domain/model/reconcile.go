package model

// ReconcileResult reports what a confirmation attempt actually changed.
// A replayed confirmation succeeds with both created flags false, which is
// how callers and tests tell a first-time reconciliation from a duplicate
// delivery.
type ReconcileResult struct {
	EnrollmentCreated bool // also covers feature grants for feature purchases
	PaymentCreated    bool
	TestMode          bool
}
