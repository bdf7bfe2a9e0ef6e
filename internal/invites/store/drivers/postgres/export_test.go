package postgres

import "context"

// Truncate empties the ledger tables.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE user_invites, users`)
	return err
}
