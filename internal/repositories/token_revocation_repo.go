package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kosanku/kosanku-api/internal/database"
	"github.com/kosanku/kosanku-api/internal/models"
)

// TokenRevocationRepository is the shared JTI blacklist for both realms
type TokenRevocationRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRevocationRepository(db *database.DB) *TokenRevocationRepository {
	return &TokenRevocationRepository{pool: db.Pool}
}

// RevokeToken adds a token to the revocation blacklist
func (r *TokenRevocationRepository) RevokeToken(ctx context.Context, jti string, realm models.Realm, accountID, tokenType string, expiresAt time.Time, reason string) error {
	query := `
		INSERT INTO revoked_tokens (id, jti, realm, account_id, token_type, expires_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (jti) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, uuid.New().String(), jti, string(realm), accountID, tokenType, expiresAt, reason)
	return database.MapPostgresError(err)
}

func (r *TokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// RevokeAllAccountTokens records a logout-all audit row. The tokens themselves
// are invalidated by rotating the account's token key.
func (r *TokenRevocationRepository) RevokeAllAccountTokens(ctx context.Context, realm models.Realm, accountID string, ttl time.Duration, reason string) error {
	jti := fmt.Sprintf("logout-all-%s-%d", accountID, time.Now().UnixNano())
	return r.RevokeToken(ctx, jti, realm, accountID, "all", time.Now().Add(ttl), reason)
}

// CleanupExpiredTokens removes rows whose token would have expired anyway
func (r *TokenRevocationRepository) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
