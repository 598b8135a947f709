package orgsrv

import (
	"context"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/logx"
	"github.com/Abraxas-365/clientportal/pkg/organization"
)

type OrganizationService struct {
	members organization.MemberRepository
	billing organization.BillingRepository
}

func NewOrganizationService(members organization.MemberRepository, billing organization.BillingRepository) *OrganizationService {
	return &OrganizationService{members: members, billing: billing}
}

// Membership returns nil without error when the user is not a member.
func (s *OrganizationService) Membership(ctx context.Context, orgID kernel.OrganizationID, userID kernel.UserID) (*organization.Member, error) {
	m, err := s.members.FindMembership(ctx, orgID, userID)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// Authorize checks both the membership gate and the matrix for actor.
func (s *OrganizationService) Authorize(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID, action rbac.Action) error {
	if actor == nil {
		return rbac.ErrNoMembership()
	}
	m, err := s.Membership(ctx, orgID, actor.UserID)
	if err != nil {
		return err
	}
	return rbac.Authorize(actor, m.RoleOrNil(), action)
}

func (s *OrganizationService) ListMembers(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID) ([]organization.Member, error) {
	if err := s.Authorize(ctx, actor, orgID, rbac.ActionViewMembers); err != nil {
		return nil, err
	}
	return s.members.ListMembers(ctx, orgID)
}

func (s *OrganizationService) UpdateMemberRole(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID, userID kernel.UserID, role rbac.Role) error {
	if err := s.Authorize(ctx, actor, orgID, rbac.ActionUpdateMemberRole); err != nil {
		return err
	}
	if !role.IsValid() {
		return rbac.ErrInvalidRole().WithDetail("role", string(role))
	}
	if actor.UserID == userID {
		return organization.ErrCannotChangeOwnRole()
	}

	target, err := s.members.FindMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if target.Role == role {
		return nil
	}
	if err := s.members.UpdateRole(ctx, orgID, userID, role); err != nil {
		return err
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event":     "role_changed",
		"organization_id": orgID,
		"target_user_id":  userID,
		"from":            target.Role,
		"to":              role,
	}).Info("Audit: member role changed")
	return nil
}

func (s *OrganizationService) SetDefaultPaymentMethod(ctx context.Context, actor *kernel.Identity, orgID kernel.OrganizationID, methodID string) error {
	if err := s.Authorize(ctx, actor, orgID, rbac.ActionManageBilling); err != nil {
		return err
	}
	if methodID == "" {
		return errx.Malformed("payment method id is required")
	}
	return s.billing.SetDefaultPaymentMethod(ctx, orgID, methodID)
}

// BillingStatus reports ACTIVE for organizations without a billing account.
func (s *OrganizationService) BillingStatus(ctx context.Context, orgID kernel.OrganizationID) (organization.BillingStatus, error) {
	acc, err := s.billing.FindByOrganization(ctx, orgID)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return organization.BillingStatusActive, nil
		}
		return "", err
	}
	return acc.Status, nil
}
