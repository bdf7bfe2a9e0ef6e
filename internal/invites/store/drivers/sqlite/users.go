package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/sqlite/gen"
)

type usersRepo struct {
	s *Store
}

func now() time.Time { return time.Now().UTC() }

func (r *usersRepo) GetOrCreate(ctx context.Context, userID, displayName string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, store.ErrInvalidArguments
	}

	var u domain.User
	err := r.s.withTx(ctx, func(q *gen.Queries) error {
		ts := now()
		if err := q.CreateUserIfAbsent(ctx, gen.CreateUserIfAbsentParams{
			ID:          userID,
			DisplayName: displayName,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}); err != nil {
			return err
		}

		var err error
		u, err = loadUser(ctx, q, userID)
		return err
	})
	return u, err
}

func (r *usersRepo) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return loadUser(ctx, r.s.q, userID)
}

func (r *usersRepo) ApplyInviteCredit(ctx context.Context, inviterID, inviteeID string) (domain.User, error) {
	if inviterID == "" || inviteeID == "" || inviterID == inviteeID {
		return domain.User{}, store.ErrInvalidArguments
	}

	var u domain.User
	err := r.s.withTx(ctx, func(q *gen.Queries) error {
		if _, err := q.GetUserByID(ctx, inviterID); err != nil {
			return mapNotFound(err)
		}

		ts := now()

		// The (inviter_id, invitee_id) primary key is the dedup check.
		inserted, err := q.InsertUserInvite(ctx, gen.InsertUserInviteParams{
			InviterID: inviterID,
			InviteeID: inviteeID,
			CreatedAt: ts,
		})
		if err != nil {
			return err
		}
		if inserted == 0 {
			return store.ErrAlreadyCredited
		}

		if err := q.IncrementInviteCount(ctx, gen.IncrementInviteCountParams{
			UpdatedAt: ts,
			ID:        inviterID,
		}); err != nil {
			return err
		}

		u, err = loadUser(ctx, q, inviterID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) SetWithdrawalKeyIfAbsent(ctx context.Context, userID, key string) (string, bool, error) {
	if key == "" {
		return "", false, store.ErrInvalidArguments
	}

	var (
		stored   string
		assigned bool
	)
	err := r.s.withTx(ctx, func(q *gen.Queries) error {
		n, err := q.SetWithdrawalKeyIfAbsent(ctx, gen.SetWithdrawalKeyIfAbsentParams{
			WithdrawalKey: key,
			UpdatedAt:     now(),
			ID:            userID,
		})
		if err != nil {
			return err
		}

		row, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return mapNotFound(err)
		}

		assigned = n == 1
		stored = row.WithdrawalKey.String
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return stored, assigned, nil
}

func (r *usersRepo) Stats(ctx context.Context) (domain.LedgerStats, error) {
	row, err := r.s.q.GetLedgerStats(ctx)
	if err != nil {
		return domain.LedgerStats{}, err
	}
	return domain.LedgerStats{
		Users:        int(row.Users),
		TotalCredits: int(row.TotalCredits),
		KeyHolders:   int(row.KeyHolders),
	}, nil
}

func loadUser(ctx context.Context, q *gen.Queries, userID string) (domain.User, error) {
	row, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	invitees, err := q.ListInviteeIDs(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	return mapUser(row, invitees), nil
}
