package apikeyinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const apiKeyColumns = `id, organization_id, name, key_hash, key_prefix, scopes, rate_limit,
	is_active, expires_at, last_used_at, created_by, created_at, updated_at`

// PostgresAPIKeyRepository implements apikey.Repository.
type PostgresAPIKeyRepository struct {
	db *sqlx.DB
}

func NewPostgresAPIKeyRepository(db *sqlx.DB) apikey.Repository {
	return &PostgresAPIKeyRepository{db: db}
}

func (r *PostgresAPIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) error {
	query := `
		INSERT INTO api_keys (` + apiKeyColumns + `)
		VALUES (
			:id, :organization_id, :name, :key_hash, :key_prefix, :scopes, :rate_limit,
			:is_active, :expires_at, :last_used_at, :created_by, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toRow(key)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apikey.ErrInvalidRequest("key hash collision")
		}
		return iam.ErrUnavailable(err).WithDetail("op", "api_keys.create")
	}
	return nil
}

func (r *PostgresAPIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	var row apiKeyRow
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`
	if err := r.db.GetContext(ctx, &row, query, keyHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikey.ErrNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "api_keys.find_by_hash")
	}
	return row.toDomain(), nil
}

func (r *PostgresAPIKeyRepository) FindByID(ctx context.Context, orgID kernel.OrganizationID, id kernel.APIKeyID) (*apikey.APIKey, error) {
	var row apiKeyRow
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1 AND organization_id = $2`
	if err := r.db.GetContext(ctx, &row, query, id.String(), orgID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikey.ErrNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "api_keys.find_by_id")
	}
	return row.toDomain(), nil
}

func (r *PostgresAPIKeyRepository) ListByOrganization(ctx context.Context, orgID kernel.OrganizationID) ([]*apikey.APIKey, error) {
	var rows []apiKeyRow
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE organization_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, orgID.String()); err != nil {
		return nil, iam.ErrUnavailable(err).WithDetail("op", "api_keys.list")
	}
	keys := make([]*apikey.APIKey, 0, len(rows))
	for i := range rows {
		keys = append(keys, rows[i].toDomain())
	}
	return keys, nil
}

func (r *PostgresAPIKeyRepository) Deactivate(ctx context.Context, orgID kernel.OrganizationID, id kernel.APIKeyID, at time.Time) error {
	query := `UPDATE api_keys SET is_active = false, updated_at = $3 WHERE id = $1 AND organization_id = $2`
	res, err := r.db.ExecContext(ctx, query, id.String(), orgID.String(), at)
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "api_keys.deactivate")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "api_keys.deactivate")
	}
	if n == 0 {
		return apikey.ErrNotFound()
	}
	return nil
}

// TouchLastUsed never moves the timestamp backwards, so late bumps lose.
func (r *PostgresAPIKeyRepository) TouchLastUsed(ctx context.Context, id kernel.APIKeyID, at time.Time) error {
	query := `
		UPDATE api_keys SET last_used_at = $2
		WHERE id = $1 AND (last_used_at IS NULL OR last_used_at < $2)`
	if _, err := r.db.ExecContext(ctx, query, id.String(), at); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "api_keys.touch_last_used")
	}
	return nil
}

// ============================================================================
// Persistence mapping
// ============================================================================

type apiKeyRow struct {
	ID             string         `db:"id"`
	OrganizationID string         `db:"organization_id"`
	Name           string         `db:"name"`
	KeyHash        string         `db:"key_hash"`
	KeyPrefix      string         `db:"key_prefix"`
	Scopes         pq.StringArray `db:"scopes"`
	RateLimit      int            `db:"rate_limit"`
	IsActive       bool           `db:"is_active"`
	ExpiresAt      *time.Time     `db:"expires_at"`
	LastUsedAt     *time.Time     `db:"last_used_at"`
	CreatedBy      string         `db:"created_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func toRow(k *apikey.APIKey) apiKeyRow {
	scopes := make(pq.StringArray, len(k.Scopes))
	for i, s := range k.Scopes {
		scopes[i] = string(s)
	}
	return apiKeyRow{
		ID:             k.ID.String(),
		OrganizationID: k.OrganizationID.String(),
		Name:           k.Name,
		KeyHash:        k.KeyHash,
		KeyPrefix:      k.KeyPrefix,
		Scopes:         scopes,
		RateLimit:      k.RateLimit,
		IsActive:       k.IsActive,
		ExpiresAt:      k.ExpiresAt,
		LastUsedAt:     k.LastUsedAt,
		CreatedBy:      k.CreatedBy.String(),
		CreatedAt:      k.CreatedAt,
		UpdatedAt:      k.UpdatedAt,
	}
}

// toDomain keeps unknown stored scopes out of the granted set.
func (r apiKeyRow) toDomain() *apikey.APIKey {
	scopes := make([]apikey.Scope, 0, len(r.Scopes))
	for _, s := range r.Scopes {
		if sc := apikey.Scope(s); sc.IsValid() {
			scopes = append(scopes, sc)
		}
	}
	return &apikey.APIKey{
		ID:             kernel.APIKeyID(r.ID),
		OrganizationID: kernel.NewOrganizationID(r.OrganizationID),
		Name:           r.Name,
		KeyHash:        r.KeyHash,
		KeyPrefix:      r.KeyPrefix,
		Scopes:         scopes,
		RateLimit:      r.RateLimit,
		IsActive:       r.IsActive,
		ExpiresAt:      r.ExpiresAt,
		LastUsedAt:     r.LastUsedAt,
		CreatedBy:      kernel.NewUserID(r.CreatedBy),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
