package auth

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// TokenService is the credential codec contract.
type TokenService interface {
	Issue(claims Claims, ttl time.Duration) (string, error)
	Verify(token string) (*Claims, error)
}

// SessionRepository persists sessions. Expired rows are never pruned here.
type SessionRepository interface {
	Create(ctx context.Context, session Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID kernel.UserID) error
}

// PasswordService hashes and checks passwords.
type PasswordService interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// StateManager issues and consumes one-shot OAuth state values.
type StateManager interface {
	Generate(ctx context.Context, redirectTo string) (string, error)
	// Consume returns the redirect stored with state and forgets it.
	Consume(ctx context.Context, state string) (string, error)
}

// AuditService records authentication events.
type AuditService interface {
	LogLogin(ctx context.Context, userID kernel.UserID, method string, success bool, ip string)
	LogLogout(ctx context.Context, userID kernel.UserID, ip string)
	LogAccountCreated(ctx context.Context, userID kernel.UserID, method string)
	LogAccountLinked(ctx context.Context, userID kernel.UserID, provider string)
	LogEmailVerified(ctx context.Context, userID kernel.UserID)
}
