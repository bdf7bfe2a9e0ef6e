package telegram

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/invitetracker/internal/invites/bot"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// compile-time interface check
var _ bot.Transport = (*Transport)(nil)

// Transport sends the dispatcher's replies through the Bot API.
type Transport struct {
	API API
}

func (t *Transport) Reply(ctx context.Context, chatID int64, text string, keyboard bot.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if len(keyboard) > 0 {
		msg.ReplyMarkup = inlineKeyboard(keyboard)
	}

	if _, err := t.API.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (t *Transport) Alert(ctx context.Context, callbackID, text string, showAlert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = showAlert

	// Answering a callback returns true rather than a Message, so Request
	// is used instead of Send.
	if _, err := t.API.Request(cfg); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func (t *Transport) EditText(ctx context.Context, msg bot.MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.API.Send(tgbotapi.NewEditMessageText(msg.ChatID, msg.MessageID, text)); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func inlineKeyboard(kb bot.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
