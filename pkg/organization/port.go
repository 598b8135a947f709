package organization

import (
	"context"

	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

type MemberRepository interface {
	// FindMembership returns ErrMemberNotFound when the user is not a member.
	FindMembership(ctx context.Context, orgID kernel.OrganizationID, userID kernel.UserID) (*Member, error)
	ListMembers(ctx context.Context, orgID kernel.OrganizationID) ([]Member, error)
	UpdateRole(ctx context.Context, orgID kernel.OrganizationID, userID kernel.UserID, role rbac.Role) error
}

type BillingRepository interface {
	FindByOrganization(ctx context.Context, orgID kernel.OrganizationID) (*BillingAccount, error)
	// SetDefaultPaymentMethod leaves exactly one default for the organization.
	SetDefaultPaymentMethod(ctx context.Context, orgID kernel.OrganizationID, methodID string) error
}
