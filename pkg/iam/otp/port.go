package otp

import "context"

type Repository interface {
	Create(ctx context.Context, otp *OTP) error
	// GetLatestByContact returns ErrOTPNotFound when nothing was issued.
	GetLatestByContact(ctx context.Context, contact string, purpose OTPPurpose) (*OTP, error)
	Update(ctx context.Context, otp *OTP) error
}

// NotificationService delivers a verification code to an email address.
// Implementations should honour ctx; callers bound it with OTPConfig.SendTimeout.
type NotificationService interface {
	SendOTP(ctx context.Context, contact string, code string) error
}
