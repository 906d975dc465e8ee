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

// OTPRepository is the one-time code ledger for one realm
type OTPRepository struct {
	pool     *pgxpool.Pool
	table    string
	ownerCol string
}

func NewOTPRepository(db *database.DB, realm models.Realm) *OTPRepository {
	table, owner := otpTable(realm)
	return &OTPRepository{pool: db.Pool, table: table, ownerCol: owner}
}

func otpTable(realm models.Realm) (string, string) {
	switch realm {
	case models.RealmUser:
		return "email_otps", "user_id"
	case models.RealmAdmin:
		return "admin_email_otps", "admin_id"
	}
	panic(fmt.Sprintf("unknown realm %q", realm))
}

func (r *OTPRepository) columns() string {
	return fmt.Sprintf("id, %s, code_hash, expires_at, consumed_at, created_at", r.ownerCol)
}

func scanCodeRow(row rowScanner) (*models.OneTimeCode, error) {
	var c models.OneTimeCode
	err := row.Scan(&c.ID, &c.AccountID, &c.CodeHash, &c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

func (r *OTPRepository) Create(ctx context.Context, accountID, codeHash string, createdAt, expiresAt time.Time) (*models.OneTimeCode, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, r.table, r.ownerCol, r.columns())

	code, err := scanCodeRow(r.pool.QueryRow(ctx, query, uuid.New().String(), accountID, codeHash, expiresAt, createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create otp: %w", err)
	}
	return code, nil
}

// LatestUnconsumed returns the newest code not yet used, expired or not.
// ErrNotFound when there is none.
func (r *OTPRepository) LatestUnconsumed(ctx context.Context, accountID string) (*models.OneTimeCode, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND consumed_at IS NULL
		ORDER BY created_at DESC LIMIT 1
	`, r.columns(), r.table, r.ownerCol)
	return scanCodeRow(r.pool.QueryRow(ctx, query, accountID))
}

// Latest returns the newest code regardless of state; it anchors the resend cooldown
func (r *OTPRepository) Latest(ctx context.Context, accountID string) (*models.OneTimeCode, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1
		ORDER BY created_at DESC LIMIT 1
	`, r.columns(), r.table, r.ownerCol)
	return scanCodeRow(r.pool.QueryRow(ctx, query, accountID))
}

func (r *OTPRepository) DeleteUnconsumed(ctx context.Context, accountID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND consumed_at IS NULL`, r.table, r.ownerCol)
	result, err := r.pool.Exec(ctx, query, accountID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// DeleteStale removes the account's consumed or expired codes
func (r *OTPRepository) DeleteStale(ctx context.Context, accountID string, now time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s = $1 AND (consumed_at IS NOT NULL OR expires_at < $2)
	`, r.table, r.ownerCol)
	result, err := r.pool.Exec(ctx, query, accountID, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// MarkConsumed flags a code as used. A code can be consumed once; a second
// call returns ErrNotFound.
func (r *OTPRepository) MarkConsumed(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL`, r.table)
	result, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CleanupStale sweeps consumed and expired codes for every account
func (r *OTPRepository) CleanupStale(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE consumed_at IS NOT NULL OR expires_at < $1`, r.table)
	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
