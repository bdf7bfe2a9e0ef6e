package domain

import (
	"slices"
	"time"
)

// User is the invite-accounting record kept for every chat platform user.
type User struct {
	ID             string
	DisplayName    string   // captured on first creation, never refreshed
	InviteCount    int      // always len(InvitedUserIDs)
	InvitedUserIDs []string // distinct users credited to this inviter
	WithdrawalKey  *string  // nil until issued, immutable afterwards
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasInvited reports whether userID has already been credited to u.
func (u User) HasInvited(userID string) bool {
	return slices.Contains(u.InvitedUserIDs, userID)
}

// HasWithdrawalKey reports whether a reward key has been issued.
func (u User) HasWithdrawalKey() bool {
	return u.WithdrawalKey != nil && *u.WithdrawalKey != ""
}

// Member identifies a chat platform user taking part in an event.
type Member struct {
	ID          string
	DisplayName string
	IsBot       bool
}

// LedgerStats summarises the whole ledger.
type LedgerStats struct {
	Users        int
	TotalCredits int
	KeyHolders   int
}
