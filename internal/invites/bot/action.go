package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownAction     = errors.New("unknown callback action")
	ErrMalformedCallback = errors.New("malformed callback data")
	ErrForeignRecord     = errors.New("callback targets another user's record")
	ErrRateLimited       = errors.New("too many callbacks")
)

// Command is a slash command the bot understands.
type Command string

const CommandStart Command = "start"

// ParseCommand extracts a known command from message text such as
// "/start", "/start@InviteBot" or "/start ref".
func ParseCommand(text string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	name, _, _ = strings.Cut(name, "@")

	switch Command(strings.ToLower(name)) {
	case CommandStart:
		return CommandStart, true
	default:
		return "", false
	}
}

// Action is an inline button press.
type Action string

const (
	ActionCheck    Action = "check"
	ActionKey      Action = "key"
	ActionWithdraw Action = "withdraw"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCheck, ActionKey, ActionWithdraw:
		return true
	default:
		return false
	}
}

// Callback is the parsed payload of an inline button.
type Callback struct {
	Action Action
	UserID string
}

// Data encodes the callback as "<action>:<userID>".
func (c Callback) Data() string {
	return string(c.Action) + ":" + c.UserID
}

// ParseCallback decodes button data. Buttons sent by earlier releases used
// "<action>_<userID>" and are still accepted.
func ParseCallback(data string) (Callback, error) {
	action, userID, ok := strings.Cut(data, ":")
	if !ok {
		action, userID, ok = strings.Cut(data, "_")
	}
	if !ok || action == "" || userID == "" {
		return Callback{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
		return Callback{}, fmt.Errorf("%w: user id %q", ErrMalformedCallback, userID)
	}

	cb := Callback{Action: Action(action), UserID: userID}
	if !cb.Action.Valid() {
		return Callback{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return cb, nil
}
