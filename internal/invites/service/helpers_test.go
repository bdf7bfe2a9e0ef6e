package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/memory"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

// ledgers returns a fresh store per driver so service behaviour is checked
// against both the in-memory and the SQL implementation.
func ledgers(t *testing.T) map[string]func(t *testing.T) store.Store {
	t.Helper()
	return map[string]func(t *testing.T) store.Store{
		"memory": func(t *testing.T) store.Store {
			return memory.New()
		},
		"sqlite": func(t *testing.T) store.Store {
			st, err := sqlite.NewStore(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })
			require.NoError(t, st.ApplyMigrations(context.Background()))
			return st
		},
	}
}

func member(id string) domain.Member {
	return domain.Member{ID: id, DisplayName: "user-" + id}
}

func members(from, to int) []domain.Member {
	out := make([]domain.Member, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, member(fmt.Sprintf("m%d", i)))
	}
	return out
}

// faultyStore wraps a real store and lets a test inject credit failures.
type faultyStore struct {
	store.Store
	users *faultyUsers
}

func (s *faultyStore) Users() store.Users { return s.users }

type faultyUsers struct {
	store.Users
	failCredit func(inviteeID string) error
}

func (u *faultyUsers) ApplyInviteCredit(ctx context.Context, inviterID, inviteeID string) (domain.User, error) {
	if u.failCredit != nil {
		if err := u.failCredit(inviteeID); err != nil {
			return domain.User{}, err
		}
	}
	return u.Users.ApplyInviteCredit(ctx, inviterID, inviteeID)
}

func newFaultyStore(base store.Store, failCredit func(inviteeID string) error) *faultyStore {
	return &faultyStore{
		Store: base,
		users: &faultyUsers{Users: base.Users(), failCredit: failCredit},
	}
}
