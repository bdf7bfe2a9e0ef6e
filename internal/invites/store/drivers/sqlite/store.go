package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/sqlite/gen"
	_ "modernc.org/sqlite"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
	q  *gen.Queries
}

// NewStore opens the sqlite database at dsn, e.g.
// "file:invites.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" or
// ":memory:" for tests.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite has a single writer. One connection serialises the ledger
	// transactions and keeps a ":memory:" database shared by every query.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db: db,
		q:  gen.New(db),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() store.Users { return &usersRepo{s: s} }

// withTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) withTx(ctx context.Context, fn func(q *gen.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapUser(row gen.User, invitees []string) domain.User {
	if invitees == nil {
		invitees = []string{}
	}
	return domain.User{
		ID:             row.ID,
		DisplayName:    row.DisplayName,
		InviteCount:    int(row.InviteCount),
		InvitedUserIDs: invitees,
		WithdrawalKey:  mapNullStringPtr(row.WithdrawalKey),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
