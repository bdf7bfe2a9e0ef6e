package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/bot"
	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/pkg/idx"
	"github.com/aussiebroadwan/invitetracker/pkg/slogx"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler is implemented by *bot.Dispatcher.
type Handler interface {
	HandleCommand(ctx context.Context, ev bot.CommandEvent) error
	HandleCallback(ctx context.Context, ev bot.CallbackEvent) error
	HandleJoin(ctx context.Context, ev bot.JoinEvent) domain.BatchResult
}

// Poller long-polls the Bot API and dispatches every update on its own
// goroutine.
type Poller struct {
	API     API
	Handler Handler
	Logger  *slog.Logger

	// PollTimeout is the long-poll wait in seconds. Defaults to 60.
	PollTimeout int
	// HandlerTimeout bounds a single update. Defaults to 30s.
	HandlerTimeout time.Duration
	// DropPending discards updates queued while the bot was offline.
	DropPending bool
}

// Run polls until ctx is cancelled, then waits for in-flight updates.
func (p *Poller) Run(ctx context.Context) error {
	if p.DropPending {
		if _, err := p.API.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
			return fmt.Errorf("failed to drop pending updates: %w", err)
		}
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.PollTimeout
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60
	}
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.API.GetUpdatesChan(cfg)
	p.Logger.Info("telegram polling started", slog.Int("timeout_sec", cfg.Timeout))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			p.API.StopReceivingUpdates()
			p.Logger.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.handle(ctx, update)
			}()
		}
	}
}

func (p *Poller) handle(parent context.Context, update tgbotapi.Update) {
	timeout := p.HandlerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Shutdown stops polling but lets accepted updates finish.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	defer cancel()

	ctx = slogx.WithUpdate(slogx.WithContext(ctx, p.Logger), idx.New(), update.UpdateID)
	log := slogx.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered panic while handling update", slog.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		ev, ok := callbackEvent(update.CallbackQuery)
		if !ok {
			return
		}
		if err := p.Handler.HandleCallback(ctx, ev); err != nil {
			log.Warn("callback failed", slog.Any("error", err))
		}

	case update.Message != nil && len(update.Message.NewChatMembers) > 0:
		ev, ok := joinEvent(update.Message)
		if !ok {
			return
		}
		p.Handler.HandleJoin(ctx, ev)

	case update.Message != nil && update.Message.IsCommand():
		cmd, ok := bot.ParseCommand(update.Message.Text)
		if !ok || update.Message.From == nil {
			log.Debug("ignoring command", slog.String("text", update.Message.Text))
			return
		}
		ev := bot.CommandEvent{
			Command: cmd,
			ChatID:  update.Message.Chat.ID,
			From:    toMember(*update.Message.From),
		}
		if err := p.Handler.HandleCommand(ctx, ev); err != nil {
			log.Warn("command failed", slog.String("command", string(cmd)), slog.Any("error", err))
		}
	}
}

func callbackEvent(q *tgbotapi.CallbackQuery) (bot.CallbackEvent, bool) {
	if q.From == nil {
		return bot.CallbackEvent{}, false
	}

	ev := bot.CallbackEvent{
		ID:   q.ID,
		Data: q.Data,
		From: toMember(*q.From),
	}
	if q.Message != nil && q.Message.Chat != nil {
		ev.Message = bot.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
	}
	return ev, true
}

// joinEvent credits new members to the message sender: the user who added
// them, or the joining user themself when they came in through a link.
func joinEvent(m *tgbotapi.Message) (bot.JoinEvent, bool) {
	if m.From == nil || m.Chat == nil {
		return bot.JoinEvent{}, false
	}

	members := make([]domain.Member, 0, len(m.NewChatMembers))
	for _, u := range m.NewChatMembers {
		members = append(members, toMember(u))
	}

	return bot.JoinEvent{
		ChatID:  m.Chat.ID,
		Inviter: toMember(*m.From),
		Members: members,
	}, true
}

func toMember(u tgbotapi.User) domain.Member {
	name := u.FirstName
	if name == "" {
		name = u.UserName
	}
	return domain.Member{
		ID:          strconv.FormatInt(u.ID, 10),
		DisplayName: name,
		IsBot:       u.IsBot,
	}
}
