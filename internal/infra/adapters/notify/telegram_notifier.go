package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"course-payments/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier delivers operational notifications (payment completed,
// certificate issued) to admin and buyer Telegram chats.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewTelegramNotifier(token string, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier ready")
	return &TelegramNotifier{bot: bot, log: logger}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := n.bot.Send(msg)
	return err
}
