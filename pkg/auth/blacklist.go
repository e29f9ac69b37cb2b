package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// Blacklist records revoked tokens so logout takes effect before expiry.
// Tokens are stored as SHA-256 digests, never raw.
type Blacklist struct {
	db *sql.DB
}

// NewBlacklist creates a blacklist backed by the given database
func NewBlacklist(db *sql.DB) *Blacklist {
	return &Blacklist{db: db}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add revokes a token until its natural expiry
func (b *Blacklist) Add(ctx context.Context, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO blacklisted_tokens (token_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_hash) DO NOTHING`
	if _, err := b.db.ExecContext(ctx, query, hashToken(token), expiresAt); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the token has been revoked
func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	query := `SELECT 1 FROM blacklisted_tokens WHERE token_hash = $1 AND expires_at > $2`
	var one int
	err := b.db.QueryRowContext(ctx, query, hashToken(token), time.Now()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}

// PurgeExpired removes blacklist rows whose tokens have expired and
// returns the number of rows deleted.
func (b *Blacklist) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM blacklisted_tokens WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired blacklist rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Count returns the number of active blacklist rows, exported as a gauge
func (b *Blacklist) Count(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blacklisted_tokens WHERE expires_at > $1`, time.Now()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count blacklisted tokens: %w", err)
	}
	return n, nil
}
