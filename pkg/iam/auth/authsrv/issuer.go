package authsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/google/uuid"
)

// Tokens is the credential pair handed to the caller after login. Refresh is
// the opaque session token.
type Tokens struct {
	Access    string    `json:"access"`
	Refresh   string    `json:"refresh"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResult is what every login flow produces.
type AuthResult struct {
	UserID              kernel.UserID `json:"userId"`
	Email               string        `json:"email"`
	IsAdmin             bool          `json:"isAdmin"`
	EmailVerified       bool          `json:"emailVerified"`
	OnboardingCompleted bool          `json:"onboardingCompleted"`
	Tokens              Tokens        `json:"tokens"`
}

// SessionIssuer is the terminal step shared by password and OAuth login:
// one session row, then one access token for the same user.
type SessionIssuer struct {
	sessions   auth.SessionRepository
	tokens     auth.TokenService
	accessTTL  time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

func NewSessionIssuer(sessions auth.SessionRepository, tokens auth.TokenService, accessTTL, sessionTTL time.Duration) *SessionIssuer {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &SessionIssuer{
		sessions:   sessions,
		tokens:     tokens,
		accessTTL:  accessTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (i *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	i.now = now
	return i
}

func (i *SessionIssuer) Issue(ctx context.Context, u *user.User) (*AuthResult, error) {
	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate session token", errx.TypeInternal)
	}

	now := i.now()
	session := auth.Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: now.Add(i.sessionTTL),
		CreatedAt: now,
	}
	if err := i.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	access, err := i.AccessToken(u)
	if err != nil {
		return nil, err
	}

	return resultFor(u, Tokens{Access: access, Refresh: token, ExpiresAt: session.ExpiresAt}), nil
}

// AccessToken signs a short-lived token for u's current store state.
func (i *SessionIssuer) AccessToken(u *user.User) (string, error) {
	return i.tokens.Issue(auth.ClaimsFor(u.Identity()), i.accessTTL)
}

func resultFor(u *user.User, tokens Tokens) *AuthResult {
	return &AuthResult{
		UserID:              u.ID,
		Email:               u.Email,
		IsAdmin:             u.IsAdmin,
		EmailVerified:       u.IsVerified(),
		OnboardingCompleted: u.OnboardingCompleted,
		Tokens:              tokens,
	}
}
