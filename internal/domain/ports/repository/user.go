package repository

import (
	"context"

	"course-payments/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	// ListAdmins returns every admin account, used for payment notifications.
	ListAdmins(ctx context.Context, tx Tx) ([]*model.User, error)
	// UpdateRole is governance-critical: callers record the audit entry in
	// the same transaction.
	UpdateRole(ctx context.Context, tx Tx, id string, role model.UserRole) error
}
