package auth

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam"
)

// OAuthProfile is what a provider callback yields once the code is exchanged.
type OAuthProfile struct {
	ProviderAccountID string
	Email             string
	DisplayName       string
	PictureURL        string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
}

// Validate rejects profiles the linking engine cannot dedupe.
func (p *OAuthProfile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return ErrOAuthEmailRequired()
	}
	if strings.TrimSpace(p.ProviderAccountID) == "" {
		return ErrOAuthProfileInvalid().WithDetail("field", "provider_account_id")
	}
	return nil
}

// OAuthProvider is one external identity provider.
type OAuthProvider interface {
	Name() iam.OAuthProvider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*OAuthProfile, error)
}
