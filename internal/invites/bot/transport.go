package bot

import (
	"context"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
)

// Button is an inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

type Keyboard [][]Button

// MessageRef identifies a message the bot sent earlier.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Transport is everything the dispatcher needs from the chat platform.
type Transport interface {
	Reply(ctx context.Context, chatID int64, text string, keyboard Keyboard) error
	// Alert answers a callback query. showAlert selects a modal popup
	// instead of a toast.
	Alert(ctx context.Context, callbackID, text string, showAlert bool) error
	EditText(ctx context.Context, msg MessageRef, text string) error
}

type CommandEvent struct {
	Command Command
	ChatID  int64
	From    domain.Member
}

type CallbackEvent struct {
	ID      string
	Data    string
	From    domain.Member
	Message MessageRef
}

// JoinEvent reports members added to a group. Inviter is the user whose
// action produced the event.
type JoinEvent struct {
	ChatID  int64
	Inviter domain.Member
	Members []domain.Member
}
