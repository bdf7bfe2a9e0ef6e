package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps the ledger in process memory. A single mutex serialises every
// mutation, which is what makes the conditional updates atomic.
type Store struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	now   func() time.Time
}

func New() *Store {
	return &Store{
		users: make(map[string]*domain.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() store.Users                    { return &usersRepo{s: s} }
func (s *Store) ApplyMigrations(context.Context) error { return nil }
func (s *Store) Close() error                          { return nil }
func (s *Store) Ping(context.Context) error            { return nil }

type usersRepo struct {
	s *Store
}

func (r *usersRepo) GetOrCreate(_ context.Context, userID, displayName string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, store.ErrInvalidArguments
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[userID]; ok {
		return clone(u), nil
	}

	now := r.s.now()
	u := &domain.User{
		ID:             userID,
		DisplayName:    displayName,
		InvitedUserIDs: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.s.users[userID] = u
	return clone(u), nil
}

func (r *usersRepo) GetUserByID(_ context.Context, userID string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[userID]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return clone(u), nil
}

func (r *usersRepo) ApplyInviteCredit(_ context.Context, inviterID, inviteeID string) (domain.User, error) {
	if inviterID == "" || inviteeID == "" || inviterID == inviteeID {
		return domain.User{}, store.ErrInvalidArguments
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[inviterID]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	if slices.Contains(u.InvitedUserIDs, inviteeID) {
		return domain.User{}, store.ErrAlreadyCredited
	}

	u.InvitedUserIDs = append(u.InvitedUserIDs, inviteeID)
	u.InviteCount = len(u.InvitedUserIDs)
	u.UpdatedAt = r.s.now()
	return clone(u), nil
}

func (r *usersRepo) SetWithdrawalKeyIfAbsent(_ context.Context, userID, key string) (string, bool, error) {
	if key == "" {
		return "", false, store.ErrInvalidArguments
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return "", false, store.ErrNotFound
	}
	if u.HasWithdrawalKey() {
		return *u.WithdrawalKey, false, nil
	}

	u.WithdrawalKey = &key
	u.UpdatedAt = r.s.now()
	return key, true, nil
}

func (r *usersRepo) Stats(context.Context) (domain.LedgerStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var stats domain.LedgerStats
	for _, u := range r.s.users {
		stats.Users++
		stats.TotalCredits += u.InviteCount
		if u.HasWithdrawalKey() {
			stats.KeyHolders++
		}
	}
	return stats, nil
}

func clone(u *domain.User) domain.User {
	out := *u
	out.InvitedUserIDs = slices.Clone(u.InvitedUserIDs)
	if u.WithdrawalKey != nil {
		key := *u.WithdrawalKey
		out.WithdrawalKey = &key
	}
	return out
}
