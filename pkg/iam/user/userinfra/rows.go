package userinfra

import (
	"database/sql"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

type userRow struct {
	ID                  string         `db:"id"`
	Email               string         `db:"email"`
	Name                string         `db:"name"`
	Image               sql.NullString `db:"image"`
	EmailVerifiedAt     *time.Time     `db:"email_verified_at"`
	IsAdmin             bool           `db:"is_admin"`
	PasswordHash        sql.NullString `db:"password_hash"`
	OnboardingCompleted bool           `db:"onboarding_completed"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func toUserRow(u user.User) userRow {
	return userRow{
		ID:                  u.ID.String(),
		Email:               u.Email,
		Name:                u.Name,
		Image:               nullString(u.Image),
		EmailVerifiedAt:     u.EmailVerifiedAt,
		IsAdmin:             u.IsAdmin,
		PasswordHash:        nullString(u.PasswordHash),
		OnboardingCompleted: u.OnboardingCompleted,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (r userRow) toDomain() user.User {
	return user.User{
		ID:                  kernel.UserID(r.ID),
		Email:               r.Email,
		Name:                r.Name,
		Image:               r.Image.String,
		EmailVerifiedAt:     r.EmailVerifiedAt,
		IsAdmin:             r.IsAdmin,
		PasswordHash:        r.PasswordHash.String,
		OnboardingCompleted: r.OnboardingCompleted,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type accountRow struct {
	ID                string         `db:"id"`
	UserID            string         `db:"user_id"`
	Provider          string         `db:"provider"`
	ProviderAccountID string         `db:"provider_account_id"`
	AccessToken       sql.NullString `db:"access_token"`
	RefreshToken      sql.NullString `db:"refresh_token"`
	ExpiresAt         *time.Time     `db:"expires_at"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func toAccountRow(a user.ExternalAccount) accountRow {
	return accountRow{
		ID:                a.ID,
		UserID:            a.UserID.String(),
		Provider:          string(a.Provider),
		ProviderAccountID: a.ProviderAccountID,
		AccessToken:       nullString(a.AccessToken),
		RefreshToken:      nullString(a.RefreshToken),
		ExpiresAt:         a.ExpiresAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func (r accountRow) toDomain() user.ExternalAccount {
	return user.ExternalAccount{
		ID:                r.ID,
		UserID:            kernel.UserID(r.UserID),
		Provider:          iam.OAuthProvider(r.Provider),
		ProviderAccountID: r.ProviderAccountID,
		AccessToken:       r.AccessToken.String,
		RefreshToken:      r.RefreshToken.String,
		ExpiresAt:         r.ExpiresAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
