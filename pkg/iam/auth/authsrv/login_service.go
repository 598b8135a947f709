package authsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// LoginService handles password login and the session lifecycle.
type LoginService struct {
	users     user.Repository
	sessions  auth.SessionRepository
	passwords auth.PasswordService
	issuer    *SessionIssuer
	audit     auth.AuditService
	now       func() time.Time
}

func NewLoginService(
	users user.Repository,
	sessions auth.SessionRepository,
	passwords auth.PasswordService,
	issuer *SessionIssuer,
	audit auth.AuditService,
) *LoginService {
	return &LoginService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		issuer:    issuer,
		audit:     audit,
		now:       time.Now,
	}
}

func (s *LoginService) WithClock(now func() time.Time) *LoginService {
	s.now = now
	return s
}

// Login checks email and password. An unknown email and a wrong password
// produce the same error.
func (s *LoginService) Login(ctx context.Context, email, password, ip string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			s.audit.LogLogin(ctx, "", "password", false, ip)
			return nil, auth.ErrInvalidCredentials()
		}
		return nil, err
	}

	if !u.HasPassword() || !s.passwords.Compare(u.PasswordHash, password) {
		s.audit.LogLogin(ctx, u.ID, "password", false, ip)
		return nil, auth.ErrInvalidCredentials()
	}

	result, err := s.issuer.Issue(ctx, u)
	if err != nil {
		return nil, err
	}
	s.audit.LogLogin(ctx, u.ID, "password", true, ip)
	return result, nil
}

// Logout deletes the session. Unknown tokens are ignored.
func (s *LoginService) Logout(ctx context.Context, userID kernel.UserID, sessionToken, ip string) error {
	if sessionToken != "" {
		if err := s.sessions.DeleteByToken(ctx, sessionToken); err != nil {
			return err
		}
	}
	s.audit.LogLogout(ctx, userID, ip)
	return nil
}

// Refresh trades a live session for a new access token carrying the user's
// current flags.
func (s *LoginService) Refresh(ctx context.Context, sessionToken string) (*AuthResult, error) {
	if sessionToken == "" {
		return nil, auth.ErrSessionNotFound()
	}

	session, err := s.sessions.FindByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(s.now()) {
		return nil, auth.ErrSessionNotFound().WithDetail("reason", "expired")
	}

	u, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, auth.ErrSessionNotFound()
		}
		return nil, err
	}

	access, err := s.issuer.AccessToken(u)
	if err != nil {
		return nil, err
	}
	return resultFor(u, Tokens{Access: access, Refresh: session.Token, ExpiresAt: session.ExpiresAt}), nil
}
