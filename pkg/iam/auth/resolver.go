package auth

import (
	"context"
	"strings"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// ExtractCredential picks the raw bearer credential. A well-formed
// Authorization header wins over the cookie.
func ExtractCredential(authorization, cookie string) (string, bool) {
	if scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token, true
		}
	}
	if cookie = strings.TrimSpace(cookie); cookie != "" {
		return cookie, true
	}
	return "", false
}

// IdentityResolver turns a bearer credential into an identity re-read from the
// user store. Claims alone are never trusted.
type IdentityResolver struct {
	tokens TokenService
	users  user.Repository
}

func NewIdentityResolver(tokens TokenService, users user.Repository) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, users: users}
}

// Resolve returns an UNAUTHENTICATED error carrying the Rejection when the
// credential or its subject is not acceptable, and UNAVAILABLE when the store
// could not be read.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*kernel.Identity, error) {
	if token == "" {
		return nil, unauthenticated(RejectionMissing, nil)
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, unauthenticated(RejectionOf(err), err)
	}

	u, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, unauthenticated(RejectionUserNotFound, err)
		}
		return nil, iam.ErrUnavailable(err)
	}

	return u.Identity(), nil
}

func unauthenticated(r Rejection, cause error) *errx.Error {
	return iam.ErrUnauthenticated().WithCause(cause).WithDetail(reasonKey, r)
}
