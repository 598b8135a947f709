package organization

import (
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// Member joins a user to an organization with one role.
type Member struct {
	OrganizationID kernel.OrganizationID `db:"organization_id" json:"organization_id"`
	UserID         kernel.UserID         `db:"user_id" json:"user_id"`
	Role           rbac.Role             `db:"role" json:"role"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
}

// RoleOrNil returns nil for a nil membership, which the permission matrix
// reads as "not a member".
func (m *Member) RoleOrNil() *rbac.Role {
	if m == nil {
		return nil
	}
	r := m.Role
	return &r
}

type BillingStatus string

const (
	BillingStatusActive    BillingStatus = "ACTIVE"
	BillingStatusPastDue   BillingStatus = "PAST_DUE"
	BillingStatusSuspended BillingStatus = "SUSPENDED"
)

// BillingAccount is one-to-one with an organization.
type BillingAccount struct {
	OrganizationID         kernel.OrganizationID `db:"organization_id" json:"organization_id"`
	Status                 BillingStatus         `db:"status" json:"status"`
	DefaultPaymentMethodID *string               `db:"default_payment_method_id" json:"default_payment_method_id,omitempty"`
	UpdatedAt              time.Time             `db:"updated_at" json:"updated_at"`
}

func (b *BillingAccount) IsSuspended() bool {
	return b.Status == BillingStatusSuspended
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("ORG")

var (
	CodeMemberNotFound         = ErrRegistry.Register("MEMBER_NOT_FOUND", errx.TypeNotFound, "Member not found")
	CodeBillingAccountNotFound = ErrRegistry.Register("BILLING_ACCOUNT_NOT_FOUND", errx.TypeNotFound, "Billing account not found")
	CodePaymentMethodNotFound  = ErrRegistry.Register("PAYMENT_METHOD_NOT_FOUND", errx.TypeNotFound, "Payment method not found")
	CodeCannotChangeOwnRole    = ErrRegistry.Register("CANNOT_CHANGE_OWN_ROLE", errx.TypeConflict, "Members cannot change their own role")
)

func ErrMemberNotFound() *errx.Error         { return ErrRegistry.New(CodeMemberNotFound) }
func ErrBillingAccountNotFound() *errx.Error { return ErrRegistry.New(CodeBillingAccountNotFound) }
func ErrPaymentMethodNotFound() *errx.Error  { return ErrRegistry.New(CodePaymentMethodNotFound) }
func ErrCannotChangeOwnRole() *errx.Error    { return ErrRegistry.New(CodeCannotChangeOwnRole) }
