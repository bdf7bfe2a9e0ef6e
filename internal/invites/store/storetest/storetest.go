// Package storetest holds the behaviour every ledger driver must share.
// Driver packages call Run from their own tests with a constructor for a
// fresh, migrated store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store with migrations applied.
type Factory func(t *testing.T) store.Store

// Run exercises the store.Users contract against the store built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("get or create defaults", func(t *testing.T) {
		testGetOrCreate(t, newStore(t))
	})
	t.Run("get missing user", func(t *testing.T) {
		testGetMissing(t, newStore(t))
	})
	t.Run("invite credit", func(t *testing.T) {
		testInviteCredit(t, newStore(t))
	})
	t.Run("concurrent credits for one inviter", func(t *testing.T) {
		testConcurrentCredits(t, newStore(t))
	})
	t.Run("concurrent first contact", func(t *testing.T) {
		testConcurrentFirstContact(t, newStore(t))
	})
	t.Run("withdrawal key set once", func(t *testing.T) {
		testWithdrawalKey(t, newStore(t))
	})
	t.Run("stats", func(t *testing.T) {
		testStats(t, newStore(t))
	})
}

func testGetOrCreate(t *testing.T, st store.Store) {
	ctx := context.Background()

	u, err := st.Users().GetOrCreate(ctx, "100", "Alice")
	require.NoError(t, err)
	require.Equal(t, "100", u.ID)
	require.Equal(t, "Alice", u.DisplayName)
	require.Zero(t, u.InviteCount)
	require.Empty(t, u.InvitedUserIDs)
	require.Nil(t, u.WithdrawalKey)

	// The display name is captured once and never refreshed.
	again, err := st.Users().GetOrCreate(ctx, "100", "Alice Renamed")
	require.NoError(t, err)
	require.Equal(t, "Alice", again.DisplayName)

	got, err := st.Users().GetUserByID(ctx, "100")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.DisplayName)
}

func testGetMissing(t *testing.T, st store.Store) {
	_, err := st.Users().GetUserByID(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testInviteCredit(t *testing.T, st store.Store) {
	ctx := context.Background()
	users := st.Users()

	_, err := users.ApplyInviteCredit(ctx, "1", "2")
	require.ErrorIs(t, err, store.ErrNotFound, "inviter must exist first")

	_, err = users.GetOrCreate(ctx, "1", "Inviter")
	require.NoError(t, err)

	u, err := users.ApplyInviteCredit(ctx, "1", "2")
	require.NoError(t, err)
	require.Equal(t, 1, u.InviteCount)
	require.ElementsMatch(t, []string{"2"}, u.InvitedUserIDs)

	_, err = users.ApplyInviteCredit(ctx, "1", "2")
	require.ErrorIs(t, err, store.ErrAlreadyCredited)

	u, err = users.ApplyInviteCredit(ctx, "1", "3")
	require.NoError(t, err)
	require.Equal(t, 2, u.InviteCount)
	require.ElementsMatch(t, []string{"2", "3"}, u.InvitedUserIDs)

	got, err := users.GetUserByID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, len(got.InvitedUserIDs), got.InviteCount)
	require.False(t, got.HasInvited("1"))
}

func testConcurrentCredits(t *testing.T, st store.Store) {
	ctx := context.Background()
	users := st.Users()

	_, err := users.GetOrCreate(ctx, "inviter", "Inviter")
	require.NoError(t, err)

	const invitees = 40
	const deliveries = 3 // every invitee is delivered several times

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		credited int
		dupes    int
	)
	for i := range invitees {
		for range deliveries {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := users.ApplyInviteCredit(ctx, "inviter", fmt.Sprintf("member-%d", i))

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					credited++
				case errors.Is(err, store.ErrAlreadyCredited):
					dupes++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	require.Equal(t, invitees, credited)
	require.Equal(t, invitees*(deliveries-1), dupes)

	u, err := users.GetUserByID(ctx, "inviter")
	require.NoError(t, err)
	require.Equal(t, invitees, u.InviteCount)
	require.Len(t, u.InvitedUserIDs, invitees)
}

func testConcurrentFirstContact(t *testing.T, st store.Store) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Users().GetOrCreate(ctx, "racer", fmt.Sprintf("name-%d", i))
			if err != nil {
				t.Errorf("get or create: %v", err)
			}
		}()
	}
	wg.Wait()

	u, err := st.Users().GetUserByID(ctx, "racer")
	require.NoError(t, err)
	require.Zero(t, u.InviteCount)
	require.Contains(t, u.DisplayName, "name-")

	stats, err := st.Users().Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Users)
}

func testWithdrawalKey(t *testing.T, st store.Store) {
	ctx := context.Background()
	users := st.Users()

	_, _, err := users.SetWithdrawalKeyIfAbsent(ctx, "ghost", "123456")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = users.GetOrCreate(ctx, "7", "Keyholder")
	require.NoError(t, err)

	stored, assigned, err := users.SetWithdrawalKeyIfAbsent(ctx, "7", "123456")
	require.NoError(t, err)
	require.True(t, assigned)
	require.Equal(t, "123456", stored)

	stored, assigned, err = users.SetWithdrawalKeyIfAbsent(ctx, "7", "654321")
	require.NoError(t, err)
	require.False(t, assigned)
	require.Equal(t, "123456", stored)

	u, err := users.GetUserByID(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, u.WithdrawalKey)
	require.Equal(t, "123456", *u.WithdrawalKey)
}

func testStats(t *testing.T, st store.Store) {
	ctx := context.Background()
	users := st.Users()

	stats, err := users.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Users)

	for _, id := range []string{"a", "b"} {
		_, err := users.GetOrCreate(ctx, id, id)
		require.NoError(t, err)
	}
	_, err = users.ApplyInviteCredit(ctx, "a", "x")
	require.NoError(t, err)
	_, err = users.ApplyInviteCredit(ctx, "a", "y")
	require.NoError(t, err)
	_, err = users.ApplyInviteCredit(ctx, "b", "x")
	require.NoError(t, err)
	_, _, err = users.SetWithdrawalKeyIfAbsent(ctx, "b", "000000")
	require.NoError(t, err)

	stats, err = users.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Users)
	require.Equal(t, 3, stats.TotalCredits)
	require.Equal(t, 1, stats.KeyHolders)
}
