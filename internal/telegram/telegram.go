// Package telegram posts operational alerts to an organizer chat
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
)

// maxMessageLength is Telegram's limit for a text message
const maxMessageLength = 4096

// Sender is the subset of the bot API the alerter uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter sends alerts to a single chat
type Alerter struct {
	bot    Sender
	chatID int64
	prefix string
}

// New connects to the bot API. It fails when the token is rejected.
func New(cfg *config.TelegramConfig, appName string) (*Alerter, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, errors.New("telegram bot token and chat id are required")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	bot.Debug = false

	slog.Info("Telegram alerts enabled", "bot", bot.Self.UserName, "chat_id", cfg.ChatID)
	return NewWithSender(bot, cfg.ChatID, appName), nil
}

// NewWithSender creates an alerter over an existing sender
func NewWithSender(bot Sender, chatID int64, appName string) *Alerter {
	prefix := ""
	if appName != "" {
		prefix = "[" + appName + "] "
	}
	return &Alerter{bot: bot, chatID: chatID, prefix: prefix}
}

// Alert posts message to the chat. Failures are logged, never returned.
func (a *Alerter) Alert(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}

	text := a.prefix + message
	if runes := []rune(text); len(runes) > maxMessageLength {
		text = string(runes[:maxMessageLength-1]) + "…"
	}

	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := a.bot.Send(msg); err != nil {
		slog.Warn("Failed to send Telegram alert", "chat_id", a.chatID, "error", err)
	}
}
