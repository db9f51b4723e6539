package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/task-manager-api/internal/database"
)

// RevokedTokenRepository is the SQL-backed token denylist.
type RevokedTokenRepository struct {
	db *database.DB
}

// NewRevokedTokenRepository creates a new RevokedTokenRepository.
func NewRevokedTokenRepository(db *database.DB) *RevokedTokenRepository {
	return &RevokedTokenRepository{db: db}
}

// Revoke denylists jti until expiresAt. Revoking an already revoked token is a no-op.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	query := r.db.Rebind("INSERT INTO revoked_tokens (jti, user_id, expires_at) VALUES (?, ?, ?) ON CONFLICT (jti) DO NOTHING")
	if _, err := r.db.ExecContext(ctx, query, jti, userID, expiresAt.UTC().Truncate(time.Second)); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is on the denylist.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?"), jti).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PruneExpired drops entries whose token would already fail its expiry check.
func (r *RevokedTokenRepository) PruneExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM revoked_tokens WHERE expires_at < ?"), before.UTC().Truncate(time.Second))
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
