package otpsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/asyncx"
	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/otp"
	"github.com/Abraxas-365/clientportal/pkg/iam/user"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/google/uuid"
)

// requestCooldown is the minimum gap between two codes for the same address.
const requestCooldown = time.Minute

// OTPService issues and confirms email verification codes.
type OTPService struct {
	repo     otp.Repository
	users    user.Repository
	notifier otp.NotificationService
	audit    auth.AuditService
	cfg      config.OTPConfig
	now      func() time.Time
}

func NewOTPService(
	repo otp.Repository,
	users user.Repository,
	notifier otp.NotificationService,
	audit auth.AuditService,
	cfg config.OTPConfig,
) *OTPService {
	return &OTPService{
		repo:     repo,
		users:    users,
		notifier: notifier,
		audit:    audit,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	s.now = now
	return s
}

// Request creates a code for the user's email and hands it to the notifier.
func (s *OTPService) Request(ctx context.Context, userID kernel.UserID) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified() {
		return otp.ErrAlreadyVerified()
	}

	now := s.now()
	contact := user.NormalizeEmail(u.Email)

	existing, err := s.repo.GetLatestByContact(ctx, contact, otp.OTPPurposeEmailVerification)
	if err != nil && !errx.IsType(err, errx.TypeNotFound) {
		return err
	}
	if existing != nil && existing.IsValid(now) && now.Sub(existing.CreatedAt) < requestCooldown {
		return otp.ErrTooManyRequests().WithDetail("retry_after", requestCooldown.String())
	}

	code, err := otp.GenerateOTPCode(s.cfg.CodeLength)
	if err != nil {
		return errx.Wrap(err, "failed to generate OTP code", errx.TypeInternal)
	}

	newOTP := &otp.OTP{
		ID:          uuid.NewString(),
		Contact:     contact,
		Code:        code,
		Purpose:     otp.OTPPurposeEmailVerification,
		ExpiresAt:   now.Add(s.cfg.TTL),
		MaxAttempts: s.cfg.MaxAttempts,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, newOTP); err != nil {
		return err
	}

	err = asyncx.WithTimeout(ctx, s.cfg.SendTimeout, func(ctx context.Context) error {
		return s.notifier.SendOTP(ctx, contact, code)
	})
	if err != nil {
		return errx.Wrap(err, "failed to send OTP", errx.TypeUnavailable)
	}
	return nil
}

// Confirm checks code against the latest one issued and marks the user
// verified on a match. Confirming an already verified user is a no-op.
func (s *OTPService) Confirm(ctx context.Context, userID kernel.UserID, code string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified() {
		return nil
	}

	latest, err := s.repo.GetLatestByContact(ctx, user.NormalizeEmail(u.Email), otp.OTPPurposeEmailVerification)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return otp.ErrInvalidOTP()
		}
		return err
	}

	now := s.now()
	checkErr := latest.Check(code, now)
	if errx.Is(checkErr, otp.ErrInvalidOTP()) || checkErr == nil {
		// Attempts changed either way.
		if err := s.repo.Update(ctx, latest); err != nil {
			return err
		}
	}
	if checkErr != nil {
		return checkErr
	}

	if err := s.users.MarkVerified(ctx, u.ID, now); err != nil {
		return err
	}
	s.audit.LogEmailVerified(ctx, u.ID)
	return nil
}
