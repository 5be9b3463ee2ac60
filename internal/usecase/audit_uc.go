package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ AuditUseCase = (*auditUC)(nil)

// AuditUseCase appends to the immutable audit trail.
//
// Record is the default, best-effort path: a failed write is logged and
// swallowed, because audit logging must never block or invalidate a
// financial operation that already committed. RecordInTx is the
// governance-critical path (refunds, role changes) where the business rule
// is "action and audit record commit together or not at all".
type AuditUseCase interface {
	Record(ctx context.Context, actorID string, action model.AuditAction, targetType, targetID string, meta map[string]string)
	RecordInTx(ctx context.Context, tx repository.Tx, actorID string, action model.AuditAction, targetType, targetID string, meta map[string]string) error
}

type auditUC struct {
	entries repository.AuditLogRepository
	log     *zerolog.Logger
}

func NewAuditUseCase(entries repository.AuditLogRepository, logger *zerolog.Logger) *auditUC {
	return &auditUC{entries: entries, log: logger}
}

func newEntry(actorID string, action model.AuditAction, targetType, targetID string, meta map[string]string) *model.AuditLogEntry {
	return &model.AuditLogEntry{
		ID:         ulid.Make().String(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Meta:       meta,
		CreatedAt:  time.Now(),
	}
}

func (u *auditUC) Record(ctx context.Context, actorID string, action model.AuditAction, targetType, targetID string, meta map[string]string) {
	e := newEntry(actorID, action, targetType, targetID, meta)
	if err := u.entries.Append(ctx, repository.NoTX, e); err != nil {
		u.log.Warn().Err(err).
			Str("action", string(action)).
			Str("target_type", targetType).
			Str("target_id", targetID).
			Msg("audit append failed; entry dropped")
	}
}

func (u *auditUC) RecordInTx(ctx context.Context, tx repository.Tx, actorID string, action model.AuditAction, targetType, targetID string, meta map[string]string) error {
	return u.entries.Append(ctx, tx, newEntry(actorID, action, targetType, targetID, meta))
}
