package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "EMAIL_VERIFICATION"
)

type OTP struct {
	ID          string     `db:"id"`
	Contact     string     `db:"contact"` // normalized email
	Code        string     `db:"code"`
	Purpose     OTPPurpose `db:"purpose"`
	ExpiresAt   time.Time  `db:"expires_at"`
	VerifiedAt  *time.Time `db:"verified_at"`
	Attempts    int        `db:"attempts"`
	MaxAttempts int        `db:"max_attempts"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

func (o *OTP) IsUsed() bool {
	return o.VerifiedAt != nil
}

func (o *OTP) IsValid(now time.Time) bool {
	return !o.IsExpired(now) && !o.IsUsed() && o.Attempts < o.MaxAttempts
}

func (o *OTP) AttemptsRemaining() int {
	if r := o.MaxAttempts - o.Attempts; r > 0 {
		return r
	}
	return 0
}

// Check consumes one attempt and marks the code verified when it matches.
func (o *OTP) Check(code string, now time.Time) error {
	switch {
	case o.IsUsed():
		return ErrOTPAlreadyUsed()
	case o.IsExpired(now):
		return ErrOTPExpired()
	case o.Attempts >= o.MaxAttempts:
		return ErrTooManyAttempts()
	}

	o.Attempts++
	if subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) != 1 {
		return ErrInvalidOTP().WithDetail("attempts_remaining", o.AttemptsRemaining())
	}
	o.VerifiedAt = &now
	return nil
}

// GenerateOTPCode generates a cryptographically secure numeric code
func GenerateOTPCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	// leading zeros
	return fmt.Sprintf("%0*d", length, n), nil
}
