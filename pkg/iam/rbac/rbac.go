// Package rbac is the organization permission matrix. Roles are not ordered:
// every action lists the exact roles allowed to perform it.
package rbac

import (
	"strings"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// Role is an organization membership role.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleMember  Role = "MEMBER"
	RoleBilling Role = "BILLING"
)

var roles = []Role{RoleOwner, RoleAdmin, RoleMember, RoleBilling}

// Roles returns the closed set of roles.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func (r Role) IsValid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole().WithDetail("role", s)
	}
	return r, nil
}

// Action is a protected organization-scoped operation.
type Action string

const (
	ActionViewOrganization   Action = "org:view"
	ActionUpdateOrganization Action = "org:update"
	ActionViewMembers        Action = "members:view"
	ActionInviteMembers      Action = "members:invite"
	ActionUpdateMemberRole   Action = "members:update_role"
	ActionRemoveMembers      Action = "members:remove"
	ActionViewAPIKeys        Action = "apikeys:view"
	ActionManageAPIKeys      Action = "apikeys:manage"
	ActionViewBilling        Action = "billing:view"
	ActionManageBilling      Action = "billing:manage"
	ActionOperatePOS         Action = "pos:operate"
)

// matrix maps each action to the roles allowed to perform it.
var matrix = map[Action][]Role{
	ActionViewOrganization:   {RoleOwner, RoleAdmin, RoleMember, RoleBilling},
	ActionUpdateOrganization: {RoleOwner, RoleAdmin},
	ActionViewMembers:        {RoleOwner, RoleAdmin, RoleMember},
	ActionInviteMembers:      {RoleOwner, RoleAdmin},
	ActionUpdateMemberRole:   {RoleOwner},
	ActionRemoveMembers:      {RoleOwner, RoleAdmin},
	ActionViewAPIKeys:        {RoleOwner, RoleAdmin},
	ActionManageAPIKeys:      {RoleOwner, RoleAdmin},
	ActionViewBilling:        {RoleOwner, RoleAdmin, RoleBilling},
	ActionManageBilling:      {RoleOwner, RoleBilling},
	ActionOperatePOS:         {RoleOwner, RoleAdmin, RoleMember},
}

// Actions returns every action in the matrix.
func Actions() []Action {
	out := make([]Action, 0, len(matrix))
	for a := range matrix {
		out = append(out, a)
	}
	return out
}

// HasPermission looks the action up in the matrix. An action missing from the
// matrix is a configuration error, never a silent deny.
func HasPermission(role Role, action Action) (bool, error) {
	allowed, ok := matrix[action]
	if !ok {
		return false, ErrUnknownAction().WithDetail("action", string(action))
	}
	for _, r := range allowed {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// CanAccessOrganization is the coarse membership gate. role is nil when the
// identity has no membership in the organization.
func CanAccessOrganization(id *kernel.Identity, role *Role) bool {
	if id == nil {
		return false
	}
	return id.IsAdmin || role != nil
}

// RequirePermission fails with RBAC_NO_MEMBERSHIP when role is nil and with
// RBAC_PERMISSION_DENIED when the role is not allowed.
func RequirePermission(role *Role, action Action) error {
	if role == nil {
		return ErrNoMembership().WithDetail("action", string(action))
	}
	ok, err := HasPermission(*role, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied().
			WithDetail("action", string(action)).
			WithDetail("role", string(*role))
	}
	return nil
}

// Authorize runs both checks for an organization-scoped operation. Global
// administrators pass both, but an unknown action still fails.
func Authorize(id *kernel.Identity, role *Role, action Action) error {
	if _, ok := matrix[action]; !ok {
		return ErrUnknownAction().WithDetail("action", string(action))
	}
	if !CanAccessOrganization(id, role) {
		return ErrNoMembership().WithDetail("action", string(action))
	}
	if id.IsAdmin {
		return nil
	}
	return RequirePermission(role, action)
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("RBAC")

var (
	CodeUnknownAction    = ErrRegistry.Register("UNKNOWN_ACTION", errx.TypeInternal, "Action is not defined in the permission matrix")
	CodeNoMembership     = ErrRegistry.Register("NO_MEMBERSHIP", errx.TypeForbidden, "Not a member of this organization")
	CodePermissionDenied = ErrRegistry.Register("PERMISSION_DENIED", errx.TypeForbidden, "Role does not allow this action")
	CodeInvalidRole      = ErrRegistry.Register("INVALID_ROLE", errx.TypeMalformed, "Unknown role")
)

func ErrUnknownAction() *errx.Error    { return ErrRegistry.New(CodeUnknownAction) }
func ErrNoMembership() *errx.Error     { return ErrRegistry.New(CodeNoMembership) }
func ErrPermissionDenied() *errx.Error { return ErrRegistry.New(CodePermissionDenied) }
func ErrInvalidRole() *errx.Error      { return ErrRegistry.New(CodeInvalidRole) }
