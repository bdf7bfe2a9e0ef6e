package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
)

var (
	ErrNotFound         = errors.New("store: not found")
	ErrAlreadyCredited  = errors.New("store: invitee already credited")
	ErrInvalidArguments = errors.New("store: invalid arguments")
)

// Store is the root data access interface for the invite ledger. Concrete
// drivers (sqlite, postgres, mongo, memory) implement this. Every mutation the
// services need is a single atomic call on Users, so callers never manage
// transactions themselves.
type Store interface {
	Users() Users

	// ApplyMigrations brings the schema (tables or indexes) up to date.
	ApplyMigrations(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetOrCreate returns the user, inserting a default record (zero invites,
	// no key) with displayName if none exists. Concurrent first contact for
	// the same id resolves to a single record.
	GetOrCreate(ctx context.Context, userID, displayName string) (domain.User, error)

	// GetUserByID returns ErrNotFound when the user has no record.
	GetUserByID(ctx context.Context, userID string) (domain.User, error)

	// ApplyInviteCredit adds inviteeID to the inviter's invited set and bumps
	// the count, as one atomic step. Returns ErrAlreadyCredited if inviteeID
	// is already in the set and ErrNotFound if the inviter has no record.
	ApplyInviteCredit(ctx context.Context, inviterID, inviteeID string) (domain.User, error)

	// SetWithdrawalKeyIfAbsent stores key only if the user has none yet and
	// returns the key that ends up stored plus whether this call assigned it.
	SetWithdrawalKeyIfAbsent(ctx context.Context, userID, key string) (stored string, assigned bool, err error)

	// Stats summarises the ledger.
	Stats(ctx context.Context) (domain.LedgerStats, error)
}
