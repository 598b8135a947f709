package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const userColumns = `id, email, name, image, email_verified_at, is_admin, password_hash,
	onboarding_completed, created_at, updated_at`

// PostgresUserRepository implements user.Repository.
type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) user.Repository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "users.find_by_id")
	}
	u := row.toDomain()
	return &u, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	if err := r.db.GetContext(ctx, &row, query, user.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "users.find_by_email")
	}
	u := row.toDomain()
	return &u, nil
}

const insertUser = `
	INSERT INTO users (
		id, email, name, image, email_verified_at, is_admin, password_hash,
		onboarding_completed, created_at, updated_at
	) VALUES (
		:id, :email, :name, :image, :email_verified_at, :is_admin, :password_hash,
		:onboarding_completed, :created_at, :updated_at
	)`

const insertExternalAccount = `
	INSERT INTO external_accounts (
		id, user_id, provider, provider_account_id, access_token, refresh_token,
		expires_at, created_at, updated_at
	) VALUES (
		:id, :user_id, :provider, :provider_account_id, :access_token, :refresh_token,
		:expires_at, :created_at, :updated_at
	)`

func (r *PostgresUserRepository) Create(ctx context.Context, u user.User) error {
	if _, err := r.db.NamedExecContext(ctx, insertUser, toUserRow(u)); err != nil {
		return mapWriteError(err, "users.create")
	}
	return nil
}

func (r *PostgresUserRepository) CreateWithExternalAccount(ctx context.Context, u user.User, acc user.ExternalAccount) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "users.begin")
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertUser, toUserRow(u)); err != nil {
		return mapWriteError(err, "users.create")
	}
	if _, err := tx.NamedExecContext(ctx, insertExternalAccount, toAccountRow(acc)); err != nil {
		return mapWriteError(err, "external_accounts.create")
	}
	if err := tx.Commit(); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "users.commit")
	}
	return nil
}

func (r *PostgresUserRepository) MarkVerified(ctx context.Context, id kernel.UserID, at time.Time) error {
	query := `UPDATE users SET email_verified_at = COALESCE(email_verified_at, $2), updated_at = $2 WHERE id = $1`
	return r.execOne(ctx, "users.mark_verified", query, id.String(), at)
}

func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id kernel.UserID, name, image string) error {
	query := `UPDATE users SET name = $2, image = $3, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "users.update_profile", query, id.String(), name, image)
}

func (r *PostgresUserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", op)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", op)
	}
	if n == 0 {
		return user.ErrUserNotFound()
	}
	return nil
}

// ============================================================================
// Errors
// ============================================================================

const uniqueViolation = "23505"

func mapWriteError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.HasPrefix(pqErr.Constraint, "external_accounts") {
			return user.ErrExternalAccountExists().WithCause(err)
		}
		return user.ErrUserAlreadyExists().WithCause(err)
	}
	return iam.ErrUnavailable(err).WithDetail("op", op)
}
