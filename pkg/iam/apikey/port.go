package apikey

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

type Repository interface {
	Create(ctx context.Context, key *APIKey) error
	FindByHash(ctx context.Context, keyHash string) (*APIKey, error)
	FindByID(ctx context.Context, orgID kernel.OrganizationID, id kernel.APIKeyID) (*APIKey, error)
	ListByOrganization(ctx context.Context, orgID kernel.OrganizationID) ([]*APIKey, error)
	Deactivate(ctx context.Context, orgID kernel.OrganizationID, id kernel.APIKeyID, at time.Time) error
	TouchLastUsed(ctx context.Context, id kernel.APIKeyID, at time.Time) error
}
