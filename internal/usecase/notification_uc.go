package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/adapter"
	"course-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase fans payment events out to administrator accounts
// (and the buyer, when reachable). It runs strictly after the reconciling
// transaction committed; nothing here can undo that commit, and one failed
// recipient never blocks the others.
type NotificationUseCase interface {
	NotifyPaymentCompleted(ctx context.Context, payment *model.Payment, buyer *model.User, purchasableTitle string)
}

type notificationUC struct {
	users    repository.UserRepository
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewNotificationUseCase(users repository.UserRepository, notifier adapter.Notifier, logger *zerolog.Logger) *notificationUC {
	return &notificationUC{users: users, notifier: notifier, log: logger}
}

func (n *notificationUC) NotifyPaymentCompleted(ctx context.Context, payment *model.Payment, buyer *model.User, purchasableTitle string) {
	text := fmt.Sprintf("Payment completed: %s paid %s for %q",
		buyer.Name, formatAmount(payment.AmountMinor, payment.Currency), purchasableTitle)
	if payment.TestMode {
		text += " [test mode]"
	}

	admins, err := n.users.ListAdmins(ctx, repository.NoTX)
	if err != nil {
		n.log.Warn().Err(err).Msg("payment notification: could not list admins")
		admins = nil
	}

	// A buyer with the admin role already appears in the admin list;
	// each account gets at most one message.
	recipients := make([]*model.User, 0, len(admins)+1)
	seen := make(map[string]bool, len(admins)+1)
	for _, a := range admins {
		if !seen[a.ID] {
			seen[a.ID] = true
			recipients = append(recipients, a)
		}
	}
	if buyer.NotifyChatID != 0 && !seen[buyer.ID] {
		recipients = append(recipients, buyer)
	}

	for _, r := range recipients {
		if r.NotifyChatID == 0 {
			continue
		}
		if err := n.notifier.Send(ctx, r.NotifyChatID, text); err != nil {
			n.log.Warn().Err(err).
				Str("user_id", r.ID).
				Str("channel", n.notifier.Name()).
				Msg("payment notification delivery failed")
		}
	}
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}
