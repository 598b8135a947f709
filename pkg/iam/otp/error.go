package otp

import (
	"github.com/Abraxas-365/clientportal/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("OTP")

var (
	CodeInvalidOTP      = ErrRegistry.Register("INVALID_OTP", errx.TypeMalformed, "Invalid or incorrect verification code")
	CodeOTPExpired      = ErrRegistry.Register("OTP_EXPIRED", errx.TypeMalformed, "Verification code has expired")
	CodeOTPAlreadyUsed  = ErrRegistry.Register("OTP_ALREADY_USED", errx.TypeConflict, "Verification code has already been used")
	CodeOTPNotFound     = ErrRegistry.Register("OTP_NOT_FOUND", errx.TypeNotFound, "No verification code was requested")
	CodeTooManyAttempts = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeRateLimited, "Too many verification attempts")
	CodeTooManyRequests = ErrRegistry.Register("TOO_MANY_REQUESTS", errx.TypeRateLimited, "Too many verification code requests")
	CodeAlreadyVerified = ErrRegistry.Register("ALREADY_VERIFIED", errx.TypeConflict, "Email address is already verified")
)

func ErrInvalidOTP() *errx.Error      { return ErrRegistry.New(CodeInvalidOTP) }
func ErrOTPExpired() *errx.Error      { return ErrRegistry.New(CodeOTPExpired) }
func ErrOTPAlreadyUsed() *errx.Error  { return ErrRegistry.New(CodeOTPAlreadyUsed) }
func ErrOTPNotFound() *errx.Error     { return ErrRegistry.New(CodeOTPNotFound) }
func ErrTooManyAttempts() *errx.Error { return ErrRegistry.New(CodeTooManyAttempts) }
func ErrTooManyRequests() *errx.Error { return ErrRegistry.New(CodeTooManyRequests) }
func ErrAlreadyVerified() *errx.Error { return ErrRegistry.New(CodeAlreadyVerified) }
