package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/reward"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/stretchr/testify/require"
)

func TestStatusService(t *testing.T) {
	for name, newStore := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newStore(t)
			status := &StatusService{Store: st}

			t.Run("check before first contact", func(t *testing.T) {
				_, err := status.Check(ctx, "1")
				require.ErrorIs(t, err, store.ErrNotFound)
			})

			t.Run("start creates defaults", func(t *testing.T) {
				s, err := status.Start(ctx, domain.Member{ID: "1", DisplayName: "Alice"})
				require.NoError(t, err)
				require.Equal(t, "Alice", s.User.DisplayName)
				require.Zero(t, s.User.InviteCount)
				require.Empty(t, s.User.InvitedUserIDs)
				require.Nil(t, s.User.WithdrawalKey)
				require.Zero(t, s.Balance)
				require.Equal(t, reward.DefaultMilestone, s.Remaining)
				require.Equal(t, reward.DefaultMilestone, s.Milestone)
				require.False(t, s.ReachedMilestone)
			})

			t.Run("start keeps the first display name", func(t *testing.T) {
				s, err := status.Start(ctx, domain.Member{ID: "1", DisplayName: "Renamed"})
				require.NoError(t, err)
				require.Equal(t, "Alice", s.User.DisplayName)
			})
		})
	}
}

func TestStatusServiceCustomPolicy(t *testing.T) {
	for name, newStore := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			st := newStore(t)
			creditN(t, st, member("1"), 0, 5)

			status := &StatusService{Store: st, Policy: reward.Policy{Milestone: 4, Rate: 10, KeyLength: 6}}
			s, err := status.Check(context.Background(), "1")
			require.NoError(t, err)
			require.Equal(t, 50, s.Balance)
			require.Zero(t, s.Remaining)
			require.True(t, s.ReachedMilestone)
		})
	}
}
