package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

// fakeAPI feeds updates to the poller and records outbound calls.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
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

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testConfig() Config {
	return Config{
		BotToken:              "123:abc",
		LedgerDriver:          DriverMemory,
		Port:                  0,
		ShutdownGracePeriod:   time.Second,
		StatsInterval:         time.Hour,
		DedupCacheSize:        100,
		RewardMilestone:       2,
		RewardRate:            50,
		RewardKeyLength:       6,
		CallbackRatePerMinute: 60,
	}
}

func startCommand(updateID int, userID int64) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: updateID, Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID, FirstName: "Alice"},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     "/start",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}}
}

func TestApplicationWiring(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
	app, err := newApplication(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), api)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.run(ctx) }()

	// Alice invites two friends, which reaches the test milestone.
	api.updates <- tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		From:           &tgbotapi.User{ID: 1, FirstName: "Alice"},
		Chat:           &tgbotapi.Chat{ID: -100},
		NewChatMembers: []tgbotapi.User{{ID: 2}, {ID: 3}},
	}}
	require.Eventually(t, func() bool {
		u, err := app.db.Users().GetUserByID(context.Background(), "1")
		return err == nil && u.InviteCount == 2
	}, 2*time.Second, 10*time.Millisecond)

	api.updates <- startCommand(2, 1)
	require.Eventually(t, func() bool { return api.sentCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	api.mu.Lock()
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	api.mu.Unlock()
	require.True(t, ok)
	require.Contains(t, msg.Text, "Invites: 2")
	require.Contains(t, msg.Text, "Balance: 100")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not shut down")
	}
}

func TestApplicationFailsWhenPollingStops(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	app, err := newApplication(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), api)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.run(context.Background()) }()

	close(api.updates)

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrPollingStopped)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not stop")
	}
}

func TestNewApplicationRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.LedgerDriver = "firestore"

	_, err := newApplication(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeAPI{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
