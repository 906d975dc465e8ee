package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kosanku/kosanku-api/internal/database"
	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/kosanku/kosanku-api/pkg/auth"
)

// AccountRepository is the credential store for one realm. Users and admins
// share a schema but live in separate tables.
type AccountRepository struct {
	pool  *pgxpool.Pool
	table string
}

func NewAccountRepository(db *database.DB, realm models.Realm) *AccountRepository {
	return &AccountRepository{pool: db.Pool, table: accountTable(realm)}
}

func accountTable(realm models.Realm) string {
	switch realm {
	case models.RealmUser:
		return "users"
	case models.RealmAdmin:
		return "admins"
	}
	panic(fmt.Sprintf("unknown realm %q", realm))
}

const accountColumns = `id, email, password_hash, full_name, birth_date, image, gender, status, token_key, created_at, updated_at`

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	var status string

	err := scanner.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FullName, &a.BirthDate, &a.Image, &a.Gender,
		&status, &a.TokenKey, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	a.Status = models.AccountStatus(status)

	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, accountColumns, r.table)
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = $1`, accountColumns, r.table)
	return scanAccountRow(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

// Create inserts a new account. ErrConflict is returned when the email is taken.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()
	account.Email = strings.ToLower(account.Email)

	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return nil, err
	}
	account.TokenKey = tokenKey

	if account.Status == "" {
		account.Status = models.StatusPending
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, password_hash, full_name, birth_date, image, gender, status, token_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s
	`, r.table, accountColumns)

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.FullName, account.BirthDate,
		account.Image, account.Gender, string(account.Status), account.TokenKey,
		account.CreatedAt, account.UpdatedAt,
	))
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = NOW() WHERE id = $2`, r.table)
	return r.execOne(ctx, query, string(status), id)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET password_hash = $1, updated_at = NOW() WHERE id = $2`, r.table)
	return r.execOne(ctx, query, passwordHash, id)
}

// ResetPassword sets a new hash, reactivates the account and rotates the
// token key in one statement. Sessions issued before the reset stop validating.
func (r *AccountRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET password_hash = $1, token_key = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`, r.table)
	return r.execOne(ctx, query, passwordHash, tokenKey, string(models.StatusActive), id)
}

// UpdateProfile applies the non-nil fields of update
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			full_name = COALESCE($1, full_name),
			birth_date = COALESCE($2, birth_date),
			gender = COALESCE($3, gender),
			updated_at = NOW()
		WHERE id = $4
		RETURNING %s
	`, r.table, accountColumns)

	return scanAccountRow(r.pool.QueryRow(ctx, query, update.FullName, update.BirthDate, update.Gender, id))
}

func (r *AccountRepository) RotateTokenKey(ctx context.Context, id string) error {
	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET token_key = $1, updated_at = NOW() WHERE id = $2`, r.table)
	return r.execOne(ctx, query, tokenKey, id)
}

func (r *AccountRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
