package otpsrv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/otp"
	"github.com/Abraxas-365/clientportal/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

type fakeOTPs struct {
	items []*otp.OTP
}

func (f *fakeOTPs) Create(_ context.Context, o *otp.OTP) error {
	cp := *o
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeOTPs) GetLatestByContact(_ context.Context, contact string, purpose otp.OTPPurpose) (*otp.OTP, error) {
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].Contact == contact && f.items[i].Purpose == purpose {
			cp := *f.items[i]
			return &cp, nil
		}
	}
	return nil, otp.ErrOTPNotFound()
}

func (f *fakeOTPs) Update(_ context.Context, o *otp.OTP) error {
	for i := range f.items {
		if f.items[i].ID == o.ID {
			cp := *o
			f.items[i] = &cp
			return nil
		}
	}
	return otp.ErrOTPNotFound()
}

type fakeUsers struct {
	user.Repository
	u *user.User
}

func (f *fakeUsers) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	if f.u == nil || f.u.ID != id {
		return nil, user.ErrUserNotFound()
	}
	cp := *f.u
	return &cp, nil
}

func (f *fakeUsers) MarkVerified(_ context.Context, id kernel.UserID, at time.Time) error {
	f.u.MarkVerified(at)
	return nil
}

type captureNotifier struct {
	codes map[string]string
}

func (n *captureNotifier) SendOTP(_ context.Context, contact, code string) error {
	n.codes[contact] = code
	return nil
}

type nopAudit struct{ verified []kernel.UserID }

func (a *nopAudit) LogLogin(context.Context, kernel.UserID, string, bool, string) {}
func (a *nopAudit) LogLogout(context.Context, kernel.UserID, string)             {}
func (a *nopAudit) LogAccountCreated(context.Context, kernel.UserID, string)     {}
func (a *nopAudit) LogAccountLinked(context.Context, kernel.UserID, string)      {}
func (a *nopAudit) LogEmailVerified(_ context.Context, id kernel.UserID) {
	a.verified = append(a.verified, id)
}

type fixture struct {
	svc      *otpsrv.OTPService
	users    *fakeUsers
	notifier *captureNotifier
	audit    *nopAudit
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		users:    &fakeUsers{u: &user.User{ID: "u-1", Email: " Ana@X.com "}},
		notifier: &captureNotifier{codes: map[string]string{}},
		audit:    &nopAudit{},
		now:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.OTPConfig{CodeLength: 6, TTL: 15 * time.Minute, MaxAttempts: 3}
	f.svc = otpsrv.NewOTPService(&fakeOTPs{}, f.users, f.notifier, f.audit, cfg).
		WithClock(func() time.Time { return f.now })
	return f
}

func TestRequestAndConfirm(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.Request(ctx, "u-1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	code, ok := f.notifier.codes["ana@x.com"]
	if !ok {
		t.Fatalf("code not sent to normalized address: %v", f.notifier.codes)
	}

	if err := f.svc.Confirm(ctx, "u-1", code); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !f.users.u.IsVerified() {
		t.Fatalf("user should be verified")
	}
	if len(f.audit.verified) != 1 {
		t.Fatalf("expected one audit event, got %d", len(f.audit.verified))
	}

	// Already verified: confirm is a no-op, request is refused.
	if err := f.svc.Confirm(ctx, "u-1", "whatever"); err != nil {
		t.Fatalf("confirm on verified user: %v", err)
	}
	if err := f.svc.Request(ctx, "u-1"); !errors.Is(err, otp.ErrAlreadyVerified()) {
		t.Fatalf("expected already verified, got %v", err)
	}
}

func TestRequestCooldown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.Request(ctx, "u-1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := f.svc.Request(ctx, "u-1"); !errors.Is(err, otp.ErrTooManyRequests()) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	f.now = f.now.Add(2 * time.Minute)
	if err := f.svc.Request(ctx, "u-1"); err != nil {
		t.Fatalf("request after cooldown: %v", err)
	}
}

func TestConfirmBoundsAttempts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.Request(ctx, "u-1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	code := f.notifier.codes["ana@x.com"]
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		if err := f.svc.Confirm(ctx, "u-1", wrong); !errors.Is(err, otp.ErrInvalidOTP()) {
			t.Fatalf("attempt %d: expected invalid, got %v", i, err)
		}
	}
	if err := f.svc.Confirm(ctx, "u-1", code); !errors.Is(err, otp.ErrTooManyAttempts()) {
		t.Fatalf("expected attempts exhausted, got %v", err)
	}
	if f.users.u.IsVerified() {
		t.Fatalf("user must stay unverified")
	}
}

func TestConfirmWithoutRequest(t *testing.T) {
	f := newFixture()
	if err := f.svc.Confirm(context.Background(), "u-1", "123456"); !errors.Is(err, otp.ErrInvalidOTP()) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

type stuckNotifier struct{}

func (stuckNotifier) SendOTP(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return nil
}

func TestRequestBoundsSlowNotifier(t *testing.T) {
	users := &fakeUsers{u: &user.User{ID: "u-1", Email: "ana@x.com"}}
	cfg := config.OTPConfig{CodeLength: 6, TTL: 15 * time.Minute, MaxAttempts: 3, SendTimeout: 20 * time.Millisecond}
	svc := otpsrv.NewOTPService(&fakeOTPs{}, users, stuckNotifier{}, &nopAudit{}, cfg)

	err := svc.Request(context.Background(), "u-1")
	if !errx.IsType(err, errx.TypeUnavailable) {
		t.Fatalf("expected UNAVAILABLE from a stuck notifier, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the deadline as cause, got %v", err)
	}
}
