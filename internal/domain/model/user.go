package model

import (
	"time"

	"course-payments/internal/domain"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User is a domain entity representing a platform account: the buyers,
// the teachers who own courses, and the administrators who receive
// payment notifications.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         UserRole
	NotifyChatID int64 // Telegram chat id for operational notifications; 0 = none
	// SubscribedUntil marks an active all-access subscription. Buyers covered
	// by it are denied one-time course purchases at eligibility time.
	SubscribedUntil *time.Time
	RegisteredAt    time.Time
}

func NewUser(id, email, name string, role UserRole) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Email:        email,
		Name:         name,
		Role:         role,
		RegisteredAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func (u *User) HasActiveSubscription(at time.Time) bool {
	return u != nil && u.SubscribedUntil != nil && u.SubscribedUntil.After(at)
}
