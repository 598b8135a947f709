package orginfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/organization"
	"github.com/jmoiron/sqlx"
)

// PostgresMemberRepository implements organization.MemberRepository.
type PostgresMemberRepository struct {
	db *sqlx.DB
}

func NewPostgresMemberRepository(db *sqlx.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

func (r *PostgresMemberRepository) FindMembership(ctx context.Context, orgID kernel.OrganizationID, userID kernel.UserID) (*organization.Member, error) {
	var m organization.Member
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2`
	if err := r.db.GetContext(ctx, &m, query, orgID.String(), userID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, organization.ErrMemberNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "members.find")
	}
	return &m, nil
}

func (r *PostgresMemberRepository) ListMembers(ctx context.Context, orgID kernel.OrganizationID) ([]organization.Member, error) {
	members := []organization.Member{}
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &members, query, orgID.String()); err != nil {
		return nil, iam.ErrUnavailable(err).WithDetail("op", "members.list")
	}
	return members, nil
}

func (r *PostgresMemberRepository) UpdateRole(ctx context.Context, orgID kernel.OrganizationID, userID kernel.UserID, role rbac.Role) error {
	query := `UPDATE organization_members SET role = $3 WHERE organization_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, orgID.String(), userID.String(), string(role))
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "members.update_role")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return organization.ErrMemberNotFound()
	}
	return nil
}

// PostgresBillingRepository implements organization.BillingRepository.
type PostgresBillingRepository struct {
	db *sqlx.DB
}

func NewPostgresBillingRepository(db *sqlx.DB) *PostgresBillingRepository {
	return &PostgresBillingRepository{db: db}
}

func (r *PostgresBillingRepository) FindByOrganization(ctx context.Context, orgID kernel.OrganizationID) (*organization.BillingAccount, error) {
	var acc organization.BillingAccount
	query := `
		SELECT organization_id, status, default_payment_method_id, updated_at
		FROM billing_accounts
		WHERE organization_id = $1`
	if err := r.db.GetContext(ctx, &acc, query, orgID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, organization.ErrBillingAccountNotFound()
		}
		return nil, iam.ErrUnavailable(err).WithDetail("op", "billing.find")
	}
	return &acc, nil
}

// SetDefaultPaymentMethod locks the billing row first, so concurrent calls for
// the same organization run one after the other and the last one wins. The
// partial unique index on payment_methods rejects any second default.
func (r *PostgresBillingRepository) SetDefaultPaymentMethod(ctx context.Context, orgID kernel.OrganizationID, methodID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "billing.begin")
	}
	defer tx.Rollback()

	var locked string
	err = tx.GetContext(ctx, &locked,
		`SELECT organization_id FROM billing_accounts WHERE organization_id = $1 FOR UPDATE`, orgID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return organization.ErrBillingAccountNotFound()
		}
		return iam.ErrUnavailable(err).WithDetail("op", "billing.lock")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_methods SET is_default = false WHERE organization_id = $1 AND is_default`, orgID.String()); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "payment_methods.unset_default")
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE payment_methods SET is_default = true WHERE id = $1 AND organization_id = $2`, methodID, orgID.String())
	if err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "payment_methods.set_default")
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return organization.ErrPaymentMethodNotFound().WithDetail("payment_method_id", methodID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE billing_accounts SET default_payment_method_id = $2, updated_at = NOW() WHERE organization_id = $1`,
		orgID.String(), methodID); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "billing.update_default")
	}

	if err := tx.Commit(); err != nil {
		return iam.ErrUnavailable(err).WithDetail("op", "billing.commit")
	}
	return nil
}
