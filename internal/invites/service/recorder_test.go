package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

func TestRecordInvite(t *testing.T) {
	for name, newStore := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newStore(t)
			recorder := &InviteRecorder{Store: st}
			alice := member("1")

			t.Run("first invite is credited", func(t *testing.T) {
				outcome, err := recorder.RecordInvite(ctx, alice, "2")
				require.NoError(t, err)
				require.Equal(t, domain.OutcomeCredited, outcome)

				u, err := st.Users().GetUserByID(ctx, alice.ID)
				require.NoError(t, err)
				require.Equal(t, 1, u.InviteCount)
				require.Equal(t, []string{"2"}, u.InvitedUserIDs)
				require.Equal(t, alice.DisplayName, u.DisplayName)
			})

			t.Run("repeat invite is skipped", func(t *testing.T) {
				outcome, err := recorder.RecordInvite(ctx, alice, "2")
				require.NoError(t, err)
				require.Equal(t, domain.OutcomeSkippedAlreadyCredited, outcome)

				u, err := st.Users().GetUserByID(ctx, alice.ID)
				require.NoError(t, err)
				require.Equal(t, 1, u.InviteCount)
			})

			t.Run("self invite never touches the ledger", func(t *testing.T) {
				bob := member("3")
				outcome, err := recorder.RecordInvite(ctx, bob, bob.ID)
				require.NoError(t, err)
				require.Equal(t, domain.OutcomeSkippedSelfInvite, outcome)

				_, err = st.Users().GetUserByID(ctx, bob.ID)
				require.ErrorIs(t, err, store.ErrNotFound)
			})

			t.Run("same invitee may be credited to different inviters", func(t *testing.T) {
				outcome, err := recorder.RecordInvite(ctx, member("4"), "2")
				require.NoError(t, err)
				require.Equal(t, domain.OutcomeCredited, outcome)
			})
		})
	}
}

func TestRecordInviteStorageFailure(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("disk on fire")
	st := newFaultyStore(memory.New(), func(string) error { return errBoom })
	recorder := &InviteRecorder{Store: st}

	_, err := recorder.RecordInvite(ctx, member("1"), "2")
	require.ErrorIs(t, err, errBoom)

	u, err := st.Users().GetUserByID(ctx, "1")
	require.NoError(t, err, "inviter record is still created")
	require.Zero(t, u.InviteCount)
}

func TestRecordInviteConcurrentCredits(t *testing.T) {
	for name, newStore := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newStore(t)
			recorder := &InviteRecorder{Store: st}
			inviter := member("inviter")

			const invitees = 50
			const deliveries = 3

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				credited int
			)
			for i := range invitees {
				for range deliveries {
					wg.Add(1)
					go func(invitee string) {
						defer wg.Done()
						outcome, err := recorder.RecordInvite(ctx, inviter, invitee)
						if err != nil {
							t.Errorf("record invite: %v", err)
							return
						}
						if outcome == domain.OutcomeCredited {
							mu.Lock()
							credited++
							mu.Unlock()
						}
					}(fmt.Sprintf("invitee-%d", i))
				}
			}
			wg.Wait()

			require.Equal(t, invitees, credited)

			u, err := st.Users().GetUserByID(ctx, inviter.ID)
			require.NoError(t, err)
			require.Equal(t, invitees, u.InviteCount)
			require.Len(t, u.InvitedUserIDs, invitees)
		})
	}
}
