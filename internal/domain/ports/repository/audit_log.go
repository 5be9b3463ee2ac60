package repository

import (
	"context"

	"course-payments/internal/domain/model"
)

type AuditLogRepository interface {
	// Append writes one immutable entry. There is no update or delete;
	// the table is write-once, read-many.
	Append(ctx context.Context, tx Tx, e *model.AuditLogEntry) error
}
