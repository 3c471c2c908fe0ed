// Package alerting pushes operator alerts for fatal dispatch failures.
package alerting

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
)

// Alerter delivers an operator-facing message. Implementations are best
// effort: alert failures are logged, never propagated.
type Alerter interface {
	Alert(ctx context.Context, message string)
}

// TelegramAlerter sends alerts to an operations chat via the Telegram Bot
// API.
type TelegramAlerter struct {
	bot    *bot.Bot
	chatID string
	logger logrus.FieldLogger
}

// NewTelegramAlerter creates an alerter for the given bot token and chat.
func NewTelegramAlerter(token, chatID string, logger logrus.FieldLogger) (*TelegramAlerter, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramAlerter{
		bot:    b,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Alert sends the message to the operations chat.
func (a *TelegramAlerter) Alert(ctx context.Context, message string) {
	_, err := a.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: a.chatID,
		Text:   message,
	})
	if err != nil {
		a.logger.WithError(err).Warn("failed to deliver operator alert")
	}
}

// NopAlerter discards alerts. Used when no operations chat is configured.
type NopAlerter struct{}

func (NopAlerter) Alert(context.Context, string) {}
