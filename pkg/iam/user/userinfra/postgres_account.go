package userinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/jmoiron/sqlx"
)

// PostgresExternalAccountRepository implements user.ExternalAccountRepository.
type PostgresExternalAccountRepository struct {
	db *sqlx.DB
}

func NewPostgresExternalAccountRepository(db *sqlx.DB) user.ExternalAccountRepository {
	return &PostgresExternalAccountRepository{db: db}
}

func (r *PostgresExternalAccountRepository) FindByProviderAccount(ctx context.Context, provider iam.OAuthProvider, providerAccountID string) (*user.ExternalAccount, error) {
	var row accountRow
	query := `SELECT id, user_id, provider, provider_account_id, access_token, refresh_token,
		expires_at, created_at, updated_at
		FROM external_accounts WHERE provider = $1 AND provider_account_id = $2`
	if err := r.db.GetContext(ctx, &row, query, string(provider), providerAccountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrExternalAccountNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "external_accounts.find")
	}
	acc := row.toDomain()
	return &acc, nil
}

func (r *PostgresExternalAccountRepository) Create(ctx context.Context, acc user.ExternalAccount) error {
	if _, err := r.db.NamedExecContext(ctx, insertExternalAccount, toAccountRow(acc)); err != nil {
		return mapWriteError(err, "external_accounts.create")
	}
	return nil
}

func (r *PostgresExternalAccountRepository) UpdateTokens(ctx context.Context, acc user.ExternalAccount) error {
	query := `UPDATE external_accounts
		SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = $5
		WHERE id = $1`
	row := toAccountRow(acc)
	result, err := r.db.ExecContext(ctx, query, row.ID, row.AccessToken, row.RefreshToken, row.ExpiresAt, row.UpdatedAt)
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "external_accounts.update_tokens")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "external_accounts.update_tokens")
	}
	if n == 0 {
		return user.ErrExternalAccountNotFound()
	}
	return nil
}
