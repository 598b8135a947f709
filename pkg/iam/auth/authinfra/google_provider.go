package authinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider implements auth.OAuthProvider on top of x/oauth2.
type GoogleProvider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

var _ auth.OAuthProvider = (*GoogleProvider)(nil)

func NewGoogleProvider(cfg config.OAuthProviderConfig) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *GoogleProvider) Name() iam.OAuthProvider { return iam.OAuthProviderGoogle }

// AuthCodeURL asks for offline access so Google returns a refresh token on
// first consent.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*auth.OAuthProfile, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, auth.ErrOAuthExchangeFailed(err).WithDetail("provider", "google")
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, auth.ErrOAuthExchangeFailed(err).WithDetail("provider", "google")
	}

	// An unverified Google email must not be used to merge accounts.
	email := info.Email
	if !info.VerifiedEmail {
		email = ""
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		exp := token.Expiry
		expiresAt = &exp
	}

	return &auth.OAuthProfile{
		ProviderAccountID: info.ID,
		Email:             email,
		DisplayName:       info.Name,
		PictureURL:        info.Picture,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		ExpiresAt:         expiresAt,
	}, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := p.cfg.Client(ctx, token)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}
