package apikeysrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/asyncx"
	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey"
	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/Abraxas-365/clientportal/pkg/metricx"
	"github.com/Abraxas-365/clientportal/pkg/organization"
	"github.com/google/uuid"
)

// Authorizer checks an actor's permission on an organization.
type Authorizer interface {
	Authorize(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID, action rbac.Action) error
}

// BillingChecker reports an organization's billing status.
type BillingChecker interface {
	BillingStatus(ctx context.Context, orgID kernel.OrganizationID) (organization.BillingStatus, error)
}

type APIKeyService struct {
	repo    apikey.Repository
	authz   Authorizer
	billing BillingChecker
	bumps   *asyncx.Dispatcher
	cfg     config.APIKeyConfig
	now     func() time.Time
}

func NewAPIKeyService(
	repo apikey.Repository,
	authz Authorizer,
	billing BillingChecker,
	bumps *asyncx.Dispatcher,
	cfg config.APIKeyConfig,
) *APIKeyService {
	if cfg.Prefix == "" {
		cfg.Prefix = apikey.KeyPrefix
	}
	if cfg.RandomLength <= 0 {
		cfg.RandomLength = apikey.KeyRandomLength
	}
	if cfg.DefaultRateLimit <= 0 {
		cfg.DefaultRateLimit = 60
	}
	return &APIKeyService{
		repo:    repo,
		authz:   authz,
		billing: billing,
		bumps:   bumps,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *APIKeyService) WithClock(now func() time.Time) *APIKeyService {
	s.now = now
	return s
}

// Create issues a key for orgID. The plaintext is only in the response.
func (s *APIKeyService) Create(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID, req apikey.CreateAPIKeyRequest) (*apikey.CreateAPIKeyResponse, error) {
	if err := s.authz.Authorize(ctx, actor, orgID, rbac.ActionManageAPIKeys); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, apikey.ErrInvalidRequest("name is required")
	}
	if len(req.Scopes) == 0 {
		return nil, apikey.ErrInvalidRequest("at least one scope is required")
	}
	scopes, err := apikey.ParseScopes(req.Scopes)
	if err != nil {
		return nil, err
	}

	rateLimit := s.cfg.DefaultRateLimit
	if req.RateLimit != nil {
		if *req.RateLimit <= 0 {
			return nil, apikey.ErrInvalidRequest("rate_limit must be positive")
		}
		rateLimit = *req.RateLimit
	}

	now := s.now().UTC()
	var expiresAt *time.Time
	if req.ExpiresInDays != nil {
		if *req.ExpiresInDays <= 0 {
			return nil, apikey.ErrInvalidRequest("expires_in_days must be positive")
		}
		exp := now.AddDate(0, 0, *req.ExpiresInDays)
		expiresAt = &exp
	}

	generated, err := apikey.GenerateAPIKeyWith(s.cfg.Prefix, s.cfg.RandomLength)
	if err != nil {
		return nil, err
	}

	key := &apikey.APIKey{
		ID:             kernel.APIKeyID(uuid.NewString()),
		OrganizationID: orgID,
		Name:           req.Name,
		KeyHash:        generated.Hash,
		KeyPrefix:      generated.KeyPrefix,
		Scopes:         scopes,
		RateLimit:      rateLimit,
		IsActive:       true,
		ExpiresAt:      expiresAt,
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event":     "api_key_created",
		"organization_id": orgID,
		"key_id":          key.ID,
		"key_prefix":      key.KeyPrefix,
	}).Info("Audit: API key created")

	return &apikey.CreateAPIKeyResponse{
		APIKey:    key,
		SecretKey: generated.Key,
		Message:   "Save this key securely. It will not be shown again.",
	}, nil
}

// KeyPrefix is the prefix every key minted by this service starts with.
func (s *APIKeyService) KeyPrefix() string {
	return s.cfg.Prefix
}

// Validate returns nil without error when the key does not authenticate:
// no match, inactive, expired or a suspended organization. Store failures
// are returned as errors.
func (s *APIKeyService) Validate(ctx context.Context, plaintext string) (*apikey.ValidatedKey, error) {
	if !apikey.LooksLikeKeyWith(plaintext, s.cfg.Prefix, s.cfg.RandomLength) {
		metricx.APIKeyValidations.WithLabelValues("malformed").Inc()
		return nil, nil
	}

	key, err := s.repo.FindByHash(ctx, apikey.HashAPIKey(plaintext))
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			metricx.APIKeyValidations.WithLabelValues("no_match").Inc()
			return nil, nil
		}
		metricx.APIKeyValidations.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.now()
	switch {
	case !key.IsActive:
		metricx.APIKeyValidations.WithLabelValues("inactive").Inc()
		return nil, nil
	case key.IsExpired(now):
		metricx.APIKeyValidations.WithLabelValues("expired").Inc()
		return nil, nil
	}

	status, err := s.billing.BillingStatus(ctx, key.OrganizationID)
	if err != nil {
		metricx.APIKeyValidations.WithLabelValues("error").Inc()
		return nil, err
	}
	if status == organization.BillingStatusSuspended {
		metricx.APIKeyValidations.WithLabelValues("suspended").Inc()
		return nil, nil
	}

	s.bumpLastUsed(key.ID, now)
	metricx.APIKeyValidations.WithLabelValues("valid").Inc()

	return &apikey.ValidatedKey{
		ID:             key.ID,
		OrganizationID: key.OrganizationID,
		Scopes:         key.Scopes,
		RateLimit:      key.RateLimit,
	}, nil
}

// bumpLastUsed never blocks the caller and its failure is only logged.
func (s *APIKeyService) bumpLastUsed(id kernel.APIKeyID, at time.Time) {
	if s.bumps == nil {
		return
	}
	s.bumps.Dispatch("apikey.touch_last_used", func(ctx context.Context) error {
		return s.repo.TouchLastUsed(ctx, id, at)
	})
}

// Authorize tells an invalid key apart from a key that lacks scope.
func (s *APIKeyService) Authorize(ctx context.Context, plaintext string, scope apikey.Scope) (*apikey.ValidatedKey, error) {
	key, err := s.Validate(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, apikey.ErrInvalid()
	}
	if !apikey.HasScope(key.Scopes, scope) {
		return nil, apikey.ErrInsufficientScope().
			WithDetail("required", string(scope)).
			WithDetail("key_id", key.ID.String())
	}
	return key, nil
}

func (s *APIKeyService) List(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID) (*apikey.APIKeyListResponse, error) {
	if err := s.authz.Authorize(ctx, actor, orgID, rbac.ActionViewAPIKeys); err != nil {
		return nil, err
	}
	keys, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &apikey.APIKeyListResponse{APIKeys: keys, Total: len(keys)}, nil
}

// Revoke deactivates the key. Keys are never deleted.
func (s *APIKeyService) Revoke(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID, keyID kernel.APIKeyID) error {
	if err := s.authz.Authorize(ctx, actor, orgID, rbac.ActionManageAPIKeys); err != nil {
		return err
	}
	key, err := s.repo.FindByID(ctx, orgID, keyID)
	if err != nil {
		return err
	}
	if !key.IsActive {
		return nil
	}

	now := s.now().UTC()
	if err := s.repo.Deactivate(ctx, orgID, keyID, now); err != nil {
		return err
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event":     "api_key_revoked",
		"organization_id": orgID,
		"key_id":          keyID,
	}).Info("Audit: API key revoked")
	return nil
}
