package authsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/Abraxas-365/clientportal/pkg/metricx"
	"github.com/google/uuid"
)

// maxLinkAttempts bounds re-resolution after losing a creation race.
const maxLinkAttempts = 3

// Branch names the linking outcome.
type Branch string

const (
	// BranchExisting reuses the user owning the external account.
	BranchExisting Branch = "existing_account"
	// BranchEmailMerge links a new external account to the user with the same email.
	BranchEmailMerge Branch = "email_merge"
	// BranchCreated creates a verified user with its first external account.
	BranchCreated Branch = "created"
)

type LinkResult struct {
	AuthResult
	Branch Branch `json:"branch"`
}

// LinkingService maps a provider profile to exactly one local user and opens
// a session for it.
type LinkingService struct {
	users    user.Repository
	accounts user.ExternalAccountRepository
	issuer   *SessionIssuer
	audit    auth.AuditService
	now      func() time.Time
}

func NewLinkingService(
	users user.Repository,
	accounts user.ExternalAccountRepository,
	issuer *SessionIssuer,
	audit auth.AuditService,
) *LinkingService {
	return &LinkingService{
		users:    users,
		accounts: accounts,
		issuer:   issuer,
		audit:    audit,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *LinkingService) WithClock(now func() time.Time) *LinkingService {
	s.now = now
	return s
}

// Link resolves the profile in order: existing external account, user with
// the same email, new user. A uniqueness violation means a concurrent
// callback won the race, so the profile is resolved again.
func (s *LinkingService) Link(ctx context.Context, provider iam.OAuthProvider, profile auth.OAuthProfile) (*LinkResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	var (
		u       *user.User
		branch  Branch
		lastErr error
	)
	for attempt := 1; attempt <= maxLinkAttempts; attempt++ {
		var err error
		u, branch, err = s.resolve(ctx, provider, profile)
		if err == nil {
			lastErr = nil
			break
		}
		if !errx.IsType(err, errx.TypeConflict) {
			return nil, err
		}
		lastErr = err
		logx.WithContext(ctx).WithFields(logx.Fields{
			"provider": provider.Slug(),
			"attempt":  attempt,
		}).Debug("lost linking race, resolving again")
	}
	if lastErr != nil {
		return nil, auth.ErrLinkConflict(lastErr)
	}

	metricx.OAuthLinks.WithLabelValues(string(branch)).Inc()

	result, err := s.issuer.Issue(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LinkResult{AuthResult: *result, Branch: branch}, nil
}

func (s *LinkingService) resolve(ctx context.Context, provider iam.OAuthProvider, profile auth.OAuthProfile) (*user.User, Branch, error) {
	now := s.now()

	acc, err := s.accounts.FindByProviderAccount(ctx, provider, profile.ProviderAccountID)
	switch {
	case err == nil:
		acc.RefreshTokens(profile.AccessToken, profile.RefreshToken, profile.ExpiresAt, now)
		if err := s.accounts.UpdateTokens(ctx, *acc); err != nil {
			return nil, "", err
		}
		u, err := s.users.FindByID(ctx, acc.UserID)
		if err != nil {
			return nil, "", err
		}
		return u, BranchExisting, nil
	case !errx.IsType(err, errx.TypeNotFound):
		return nil, "", err
	}

	existing, err := s.users.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// Email ownership at the provider is accepted as proof of identity.
		if err := s.accounts.Create(ctx, newExternalAccount(existing.ID, provider, profile, now)); err != nil {
			return nil, "", err
		}
		s.audit.LogAccountLinked(ctx, existing.ID, provider.Slug())
		return existing, BranchEmailMerge, nil
	case !errx.IsType(err, errx.TypeNotFound):
		return nil, "", err
	}

	created := user.User{
		ID:              kernel.NewUserID(uuid.NewString()),
		Email:           user.NormalizeEmail(profile.Email),
		Name:            profile.DisplayName,
		Image:           profile.PictureURL,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.CreateWithExternalAccount(ctx, created, newExternalAccount(created.ID, provider, profile, now)); err != nil {
		return nil, "", err
	}
	s.audit.LogAccountCreated(ctx, created.ID, "oauth:"+provider.Slug())
	return &created, BranchCreated, nil
}

func newExternalAccount(userID kernel.UserID, provider iam.OAuthProvider, profile auth.OAuthProfile, now time.Time) user.ExternalAccount {
	return user.ExternalAccount{
		ID:                uuid.NewString(),
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: profile.ProviderAccountID,
		AccessToken:       profile.AccessToken,
		RefreshToken:      profile.RefreshToken,
		ExpiresAt:         profile.ExpiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
