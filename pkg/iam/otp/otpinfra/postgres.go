package otpinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/otp"
	"github.com/jmoiron/sqlx"
)

// PostgresOTPRepository implements otp.Repository.
type PostgresOTPRepository struct {
	db *sqlx.DB
}

func NewPostgresOTPRepository(db *sqlx.DB) *PostgresOTPRepository {
	return &PostgresOTPRepository{db: db}
}

func (r *PostgresOTPRepository) Create(ctx context.Context, o *otp.OTP) error {
	query := `
		INSERT INTO otps (
			id, contact, code, purpose, expires_at, verified_at,
			attempts, max_attempts, created_at
		) VALUES (
			:id, :contact, :code, :purpose, :expires_at, :verified_at,
			:attempts, :max_attempts, :created_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "otps.create")
	}
	return nil
}

func (r *PostgresOTPRepository) GetLatestByContact(ctx context.Context, contact string, purpose otp.OTPPurpose) (*otp.OTP, error) {
	var o otp.OTP
	query := `
		SELECT id, contact, code, purpose, expires_at, verified_at, attempts, max_attempts, created_at
		FROM otps
		WHERE contact = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &o, query, contact, purpose); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, otp.ErrOTPNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "otps.get_latest")
	}
	return &o, nil
}

func (r *PostgresOTPRepository) Update(ctx context.Context, o *otp.OTP) error {
	query := `UPDATE otps SET attempts = $2, verified_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, o.ID, o.Attempts, o.VerifiedAt)
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "otps.update")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return otp.ErrOTPNotFound()
	}
	return nil
}
