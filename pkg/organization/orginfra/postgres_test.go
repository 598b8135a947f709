package orginfra_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/organization"
	"github.com/Abraxas-365/clientportal/pkg/organization/orginfra"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestSetDefaultPaymentMethodCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := orginfra.NewPostgresBillingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM billing_accounts WHERE organization_id = $1 FOR UPDATE")).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_methods SET is_default = false")).
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_methods SET is_default = true")).
		WithArgs("pm-2", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE billing_accounts SET default_payment_method_id")).
		WithArgs("org-1", "pm-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SetDefaultPaymentMethod(context.Background(), "org-1", "pm-2"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetDefaultPaymentMethodRollsBackOnUnknownMethod(t *testing.T) {
	db, mock := newMockDB(t)
	repo := orginfra.NewPostgresBillingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	mock.ExpectExec(regexp.QuoteMeta("SET is_default = false")).
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_default = true")).
		WithArgs("pm-x", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetDefaultPaymentMethod(context.Background(), "org-1", "pm-x")
	if !errors.Is(err, organization.ErrPaymentMethodNotFound()) {
		t.Fatalf("expected payment method not found, got %v", err)
	}
	// The demotion above must not survive: the transaction was rolled back.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetDefaultPaymentMethodWithoutBillingAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := orginfra.NewPostgresBillingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("org-9").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))
	mock.ExpectRollback()

	err := repo.SetDefaultPaymentMethod(context.Background(), "org-9", "pm-1")
	if !errors.Is(err, organization.ErrBillingAccountNotFound()) {
		t.Fatalf("expected billing account not found, got %v", err)
	}
}

func TestFindMembership(t *testing.T) {
	db, mock := newMockDB(t)
	repo := orginfra.NewPostgresMemberRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM organization_members")).
		WithArgs("org-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id", "user_id", "role", "created_at"}).
			AddRow("org-1", "u-1", "BILLING", now))

	m, err := repo.FindMembership(context.Background(), "org-1", "u-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m.Role != rbac.RoleBilling {
		t.Fatalf("unexpected role %s", m.Role)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM organization_members")).
		WithArgs("org-1", "u-2").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))
	if _, err := repo.FindMembership(context.Background(), "org-1", "u-2"); !errors.Is(err, organization.ErrMemberNotFound()) {
		t.Fatalf("expected member not found, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM organization_members")).
		WithArgs("org-1", "u-3").
		WillReturnError(errors.New("broken pipe"))
	if _, err := repo.FindMembership(context.Background(), "org-1", "u-3"); !errx.IsType(err, errx.TypeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
