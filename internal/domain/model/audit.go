package model

import "time"

type AuditAction string

const (
	AuditPaymentCompleted  AuditAction = "payment.completed"
	AuditEnrollmentCreated AuditAction = "enrollment.created"
	AuditFeatureGranted    AuditAction = "feature.granted"
	AuditCertificateIssued AuditAction = "certificate.issued"
	AuditBuyerMismatch     AuditAction = "checkout.buyer_mismatch"
	AuditAccessRevoked     AuditAction = "enrollment.revoked"
	AuditRefundRecorded    AuditAction = "payment.refunded"
	AuditRoleChanged       AuditAction = "user.role_changed"
)

// AuditLogEntry is an immutable record of one state-changing action.
// Entries are written once and never updated or deleted. IDs are ULIDs so
// the append-only log stays lexicographically ordered by creation time.
type AuditLogEntry struct {
	ID         string
	ActorID    string // user who triggered the action; "" for system/webhook
	Action     AuditAction
	TargetType string // "payment", "enrollment", "checkout_session", ...
	TargetID   string
	Meta       map[string]string
	CreatedAt  time.Time
}
