package telegram

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/bot"
	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	config   tgbotapi.UpdateConfig
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = config
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type recordingHandler struct {
	mu        sync.Mutex
	commands  []bot.CommandEvent
	callbacks []bot.CallbackEvent
	joins     []bot.JoinEvent
	done      chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{}, 10)}
}

func (h *recordingHandler) HandleCommand(_ context.Context, ev bot.CommandEvent) error {
	h.mu.Lock()
	h.commands = append(h.commands, ev)
	h.mu.Unlock()
	h.done <- struct{}{}
	return nil
}

func (h *recordingHandler) HandleCallback(_ context.Context, ev bot.CallbackEvent) error {
	h.mu.Lock()
	h.callbacks = append(h.callbacks, ev)
	h.mu.Unlock()
	h.done <- struct{}{}
	return nil
}

func (h *recordingHandler) HandleJoin(_ context.Context, ev bot.JoinEvent) domain.BatchResult {
	h.mu.Lock()
	h.joins = append(h.joins, ev)
	h.mu.Unlock()
	h.done <- struct{}{}
	return domain.BatchResult{}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollerDispatchesUpdates(t *testing.T) {
	api := newFakeAPI()
	handler := newRecordingHandler()
	poller := &Poller{API: api, Handler: handler, Logger: discardLogger(), DropPending: true}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- poller.Run(ctx) }()

	chat := &tgbotapi.Chat{ID: -100}
	alice := &tgbotapi.User{ID: 1, FirstName: "Alice"}

	api.updates <- tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		MessageID: 5,
		From:      alice,
		Chat:      chat,
		Text:      "/start",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}}
	api.updates <- tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    alice,
		Data:    "check:1",
		Message: &tgbotapi.Message{MessageID: 7, Chat: chat},
	}}
	api.updates <- tgbotapi.Update{UpdateID: 3, Message: &tgbotapi.Message{
		From:           alice,
		Chat:           chat,
		NewChatMembers: []tgbotapi.User{{ID: 2, FirstName: "Bob"}, {ID: 3, UserName: "carol", IsBot: true}},
	}}

	for range 3 {
		select {
		case <-handler.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatch")
		}
	}

	cancel()
	require.NoError(t, <-errCh)

	api.mu.Lock()
	require.True(t, api.stopped)
	require.Equal(t, 60, api.config.Timeout)
	require.Len(t, api.requests, 1)
	require.Equal(t, tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}, api.requests[0])
	api.mu.Unlock()

	handler.mu.Lock()
	defer handler.mu.Unlock()

	require.Equal(t, []bot.CommandEvent{{
		Command: bot.CommandStart,
		ChatID:  -100,
		From:    domain.Member{ID: "1", DisplayName: "Alice"},
	}}, handler.commands)

	require.Equal(t, []bot.CallbackEvent{{
		ID:      "cb-1",
		Data:    "check:1",
		From:    domain.Member{ID: "1", DisplayName: "Alice"},
		Message: bot.MessageRef{ChatID: -100, MessageID: 7},
	}}, handler.callbacks)

	require.Len(t, handler.joins, 1)
	require.Equal(t, domain.Member{ID: "1", DisplayName: "Alice"}, handler.joins[0].Inviter)
	require.Equal(t, []domain.Member{
		{ID: "2", DisplayName: "Bob"},
		{ID: "3", DisplayName: "carol", IsBot: true},
	}, handler.joins[0].Members)
}

func TestPollerIgnoresUnknownCommands(t *testing.T) {
	api := newFakeAPI()
	handler := newRecordingHandler()
	poller := &Poller{API: api, Handler: handler, Logger: discardLogger()}

	poller.handle(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 1},
		Chat:     &tgbotapi.Chat{ID: 1},
		Text:     "/help",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}})

	require.Empty(t, handler.commands)
}

func TestTransport(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	transport := &Transport{API: api}

	kb := bot.Keyboard{
		{{Text: "Check", Data: "check:1"}, {Text: "Key", Data: "key:1"}},
		{{Text: "Withdrawal Request", URL: "https://t.me/withdrawals"}},
	}
	require.NoError(t, transport.Reply(ctx, 10, "hello", kb))
	require.NoError(t, transport.Alert(ctx, "cb-1", "your key", true))
	require.NoError(t, transport.EditText(ctx, bot.MessageRef{ChatID: 10, MessageID: 3}, "updated"))

	require.Len(t, api.sent, 2)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Equal(t, int64(10), msg.ChatID)
	require.Equal(t, "hello", msg.Text)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Equal(t, "check:1", *markup.InlineKeyboard[0][0].CallbackData)
	require.Equal(t, "key:1", *markup.InlineKeyboard[0][1].CallbackData)
	require.Equal(t, "https://t.me/withdrawals", *markup.InlineKeyboard[1][0].URL)

	edit, ok := api.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	require.Equal(t, 3, edit.MessageID)
	require.Equal(t, "updated", edit.Text)

	require.Len(t, api.requests, 1)
	answer, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	require.Equal(t, "cb-1", answer.CallbackQueryID)
	require.True(t, answer.ShowAlert)
}

func TestTransportHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := newFakeAPI()
	transport := &Transport{API: api}

	require.ErrorIs(t, transport.Reply(ctx, 1, "x", nil), context.Canceled)
	require.Empty(t, api.sent)
}
