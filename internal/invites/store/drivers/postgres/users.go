package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type usersRepo struct {
	db *sql.DB
}

func (r *usersRepo) GetOrCreate(ctx context.Context, userID, displayName string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, store.ErrInvalidArguments
	}

	query := `
		INSERT INTO users (id, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO NOTHING
	`

	var u domain.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, userID, displayName, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		var err error
		u, err = loadUser(ctx, tx, userID)
		return err
	})
	return u, err
}

func (r *usersRepo) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return loadUser(ctx, r.db, userID)
}

func (r *usersRepo) ApplyInviteCredit(ctx context.Context, inviterID, inviteeID string) (domain.User, error) {
	if inviterID == "" || inviteeID == "" || inviterID == inviteeID {
		return domain.User{}, store.ErrInvalidArguments
	}

	var u domain.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// Lock the inviter row so credits for the same inviter run one at a time.
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, inviterID).Scan(&id)
		if err != nil {
			return mapNotFound(err)
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO user_invites (inviter_id, invitee_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (inviter_id, invitee_id) DO NOTHING
		`, inviterID, inviteeID, now)
		if err != nil {
			return fmt.Errorf("failed to insert invite: %w", err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if inserted == 0 {
			return store.ErrAlreadyCredited
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET invite_count = invite_count + 1, updated_at = $1 WHERE id = $2
		`, now, inviterID); err != nil {
			return fmt.Errorf("failed to increment invite count: %w", err)
		}

		u, err = loadUser(ctx, tx, inviterID)
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
		stored   sql.NullString
		assigned bool
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET withdrawal_key = $1, updated_at = $2 WHERE id = $3 AND withdrawal_key IS NULL
		`, key, time.Now().UTC(), userID)
		if err != nil {
			return fmt.Errorf("failed to set withdrawal key: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		assigned = n == 1

		err = tx.QueryRowContext(ctx, `SELECT withdrawal_key FROM users WHERE id = $1`, userID).Scan(&stored)
		return mapNotFound(err)
	})
	if err != nil {
		return "", false, err
	}
	return stored.String, assigned, nil
}

func (r *usersRepo) Stats(ctx context.Context) (domain.LedgerStats, error) {
	var users, credits, holders int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(invite_count), 0), COUNT(withdrawal_key) FROM users
	`).Scan(&users, &credits, &holders)
	if err != nil {
		return domain.LedgerStats{}, fmt.Errorf("failed to read ledger stats: %w", err)
	}

	return domain.LedgerStats{
		Users:        int(users),
		TotalCredits: int(credits),
		KeyHolders:   int(holders),
	}, nil
}

func loadUser(ctx context.Context, q queryer, userID string) (domain.User, error) {
	var (
		u   domain.User
		key sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, display_name, invite_count, withdrawal_key, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.DisplayName, &u.InviteCount, &key, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	if key.Valid {
		u.WithdrawalKey = &key.String
	}

	rows, err := q.QueryContext(ctx, `
		SELECT invitee_id FROM user_invites WHERE inviter_id = $1 ORDER BY created_at, invitee_id
	`, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to list invitees: %w", err)
	}
	defer rows.Close()

	u.InvitedUserIDs = []string{}
	for rows.Next() {
		var invitee string
		if err := rows.Scan(&invitee); err != nil {
			return domain.User{}, err
		}
		u.InvitedUserIDs = append(u.InvitedUserIDs, invitee)
	}
	if err := rows.Err(); err != nil {
		return domain.User{}, err
	}

	return u, nil
}
