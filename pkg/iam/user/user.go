package user

import (
	"strings"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// User is the local identity record. Email is unique case-insensitively.
type User struct {
	ID                  kernel.UserID
	Email               string
	Name                string
	Image               string
	EmailVerifiedAt     *time.Time
	IsAdmin             bool
	PasswordHash        string
	OnboardingCompleted bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

func (u *User) MarkVerified(at time.Time) {
	if u.EmailVerifiedAt == nil {
		u.EmailVerifiedAt = &at
	}
	u.UpdatedAt = at
}

// HasPassword is false for accounts created through an OAuth provider.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Identity projects the user onto the minimal request identity.
func (u *User) Identity() *kernel.Identity {
	return &kernel.Identity{
		UserID:        u.ID,
		Email:         u.Email,
		IsAdmin:       u.IsAdmin,
		EmailVerified: u.IsVerified(),
	}
}

// ExternalAccount links a user to one identity at an OAuth provider.
// (Provider, ProviderAccountID) resolves to at most one user.
type ExternalAccount struct {
	ID                string
	UserID            kernel.UserID
	Provider          iam.OAuthProvider
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RefreshTokens replaces the cached provider tokens. An empty refresh token
// keeps the previous one since providers only send it on first consent.
func (a *ExternalAccount) RefreshTokens(access, refresh string, expiresAt *time.Time, now time.Time) {
	a.AccessToken = access
	if refresh != "" {
		a.RefreshToken = refresh
	}
	a.ExpiresAt = expiresAt
	a.UpdatedAt = now
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound            = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, "User not found")
	CodeUserAlreadyExists       = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, "A user with this email already exists")
	CodeExternalAccountNotFound = ErrRegistry.Register("EXTERNAL_ACCOUNT_NOT_FOUND", errx.TypeNotFound, "External account not found")
	CodeExternalAccountExists   = ErrRegistry.Register("EXTERNAL_ACCOUNT_EXISTS", errx.TypeConflict, "External account already linked")
	CodeInvalidEmail            = ErrRegistry.Register("INVALID_EMAIL", errx.TypeMalformed, "Email address is invalid")
)

func ErrUserNotFound() *errx.Error            { return ErrRegistry.New(CodeUserNotFound) }
func ErrUserAlreadyExists() *errx.Error       { return ErrRegistry.New(CodeUserAlreadyExists) }
func ErrExternalAccountNotFound() *errx.Error { return ErrRegistry.New(CodeExternalAccountNotFound) }
func ErrExternalAccountExists() *errx.Error   { return ErrRegistry.New(CodeExternalAccountExists) }
func ErrInvalidEmail() *errx.Error            { return ErrRegistry.New(CodeInvalidEmail) }
