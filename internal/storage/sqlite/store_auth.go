package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RevokeToken records a token ID so it is rejected until expiry.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO revoked_tokens (token_id, expires_at, revoked_at)
VALUES (?, ?, ?)
ON CONFLICT(token_id) DO NOTHING`,
		tokenID, toMillis(expiresAt), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a token ID has been revoked.
func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var found int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE token_id = ?", tokenID,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

// PurgeExpiredRevocations drops revocation rows whose tokens have already
// expired and returns the number removed.
func (s *Store) PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at < ?", toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return result.RowsAffected()
}
