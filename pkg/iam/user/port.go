package user

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// Repository persists users. Lookups return a NOT_FOUND *errx.Error when no
// row matches and an UNAVAILABLE one on store failures.
type Repository interface {
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Create fails with CONFLICT when the email is taken.
	Create(ctx context.Context, u User) error
	// CreateWithExternalAccount inserts both rows in one transaction.
	CreateWithExternalAccount(ctx context.Context, u User, acc ExternalAccount) error
	MarkVerified(ctx context.Context, id kernel.UserID, at time.Time) error
	UpdateProfile(ctx context.Context, id kernel.UserID, name, image string) error
}

// ExternalAccountRepository persists provider links.
type ExternalAccountRepository interface {
	FindByProviderAccount(ctx context.Context, provider iam.OAuthProvider, providerAccountID string) (*ExternalAccount, error)
	// Create fails with CONFLICT when the (provider, providerAccountID) pair is taken.
	Create(ctx context.Context, acc ExternalAccount) error
	UpdateTokens(ctx context.Context, acc ExternalAccount) error
}
