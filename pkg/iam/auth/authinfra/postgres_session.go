package authinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresSessionRepository implements auth.SessionRepository.
type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, session auth.Session) error {
	query := `
		INSERT INTO sessions (id, token, user_id, expires_at, created_at)
		VALUES (:id, :token, :user_id, :expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "sessions.create")
	}
	return nil
}

func (r *PostgresSessionRepository) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	var s auth.Session
	query := `SELECT id, token, user_id, expires_at, created_at FROM sessions WHERE token = $1`
	if err := r.db.GetContext(ctx, &s, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrSessionNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "sessions.find_by_token")
	}
	return &s, nil
}

func (r *PostgresSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "sessions.delete")
	}
	return nil
}

func (r *PostgresSessionRepository) DeleteByUser(ctx context.Context, userID kernel.UserID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String()); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "sessions.delete_by_user")
	}
	return nil
}
