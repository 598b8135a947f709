package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

// ============================================================================
// Claims and sessions
// ============================================================================

// Claims is the fixed payload of an issued bearer credential. Every field is
// required on the wire.
type Claims struct {
	UserID        kernel.UserID `json:"userId"`
	Email         string        `json:"email"`
	IsAdmin       bool          `json:"isAdmin"`
	EmailVerified bool          `json:"emailVerified"`
	IssuedAt      time.Time     `json:"iat"`
	ExpiresAt     time.Time     `json:"exp"`
}

// ClaimsFor builds the claims for an identity. Timestamps are set on issue.
func ClaimsFor(id *kernel.Identity) Claims {
	return Claims{
		UserID:        id.UserID,
		Email:         id.Email,
		IsAdmin:       id.IsAdmin,
		EmailVerified: id.EmailVerified,
	}
}

// Session is the store-backed long-lived credential created at login.
type Session struct {
	ID        string        `db:"id" json:"id"`
	Token     string        `db:"token" json:"-"`
	UserID    kernel.UserID `db:"user_id" json:"user_id"`
	ExpiresAt time.Time     `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NewSessionToken returns 32 random bytes, base64url encoded.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ============================================================================
// Rejections
// ============================================================================

// Rejection tags why a credential was refused.
type Rejection string

const (
	RejectionNone             Rejection = ""
	RejectionMissing          Rejection = "Missing"
	RejectionExpired          Rejection = "Expired"
	RejectionMalformed        Rejection = "Malformed"
	RejectionSignatureInvalid Rejection = "SignatureInvalid"
	RejectionUserNotFound     Rejection = "UserNotFound"
)

const reasonKey = "reason"

// RejectionOf returns the rejection carried by err, or RejectionNone.
func RejectionOf(err error) Rejection {
	var e *errx.Error
	if !errors.As(err, &e) {
		return RejectionNone
	}
	if r, ok := e.Details[reasonKey].(Rejection); ok {
		return r
	}
	return RejectionNone
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeTokenExpired          = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeUnauthenticated, "Token has expired")
	CodeTokenMalformed        = ErrRegistry.Register("TOKEN_MALFORMED", errx.TypeUnauthenticated, "Token is malformed")
	CodeTokenSignatureInvalid = ErrRegistry.Register("TOKEN_SIGNATURE_INVALID", errx.TypeUnauthenticated, "Token signature is invalid")
	CodeMissingSecret         = ErrRegistry.Register("MISSING_SECRET", errx.TypeInternal, "Signing secret is not configured")
	CodeInvalidCredentials    = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeUnauthenticated, "Invalid email or password")
	CodeSessionNotFound       = ErrRegistry.Register("SESSION_NOT_FOUND", errx.TypeUnauthenticated, "Session not found or expired")
	CodeInvalidState          = ErrRegistry.Register("INVALID_STATE", errx.TypeMalformed, "Invalid OAuth state")
	CodeOAuthEmailRequired    = ErrRegistry.Register("OAUTH_EMAIL_REQUIRED", errx.TypeMalformed, "Provider profile has no email address")
	CodeOAuthProfileInvalid   = ErrRegistry.Register("OAUTH_PROFILE_INVALID", errx.TypeMalformed, "Provider profile is incomplete")
	CodeOAuthExchangeFailed   = ErrRegistry.Register("OAUTH_EXCHANGE_FAILED", errx.TypeUnavailable, "OAuth code exchange failed")
	CodeUnknownProvider       = ErrRegistry.Register("UNKNOWN_PROVIDER", errx.TypeNotFound, "Unknown OAuth provider")
	CodeLinkConflict          = ErrRegistry.Register("LINK_CONFLICT", errx.TypeConflict, "Account linking kept conflicting, retry later")
)

func rejection(code *errx.ErrorCode, r Rejection, cause error) *errx.Error {
	return ErrRegistry.NewWithCause(code, cause).WithDetail(reasonKey, r)
}

func ErrTokenExpired(cause error) *errx.Error {
	return rejection(CodeTokenExpired, RejectionExpired, cause)
}

func ErrTokenMalformed(cause error) *errx.Error {
	return rejection(CodeTokenMalformed, RejectionMalformed, cause)
}

func ErrTokenSignatureInvalid(cause error) *errx.Error {
	return rejection(CodeTokenSignatureInvalid, RejectionSignatureInvalid, cause)
}

func ErrMissingSecret() *errx.Error       { return ErrRegistry.New(CodeMissingSecret) }
func ErrInvalidCredentials() *errx.Error  { return ErrRegistry.New(CodeInvalidCredentials) }
func ErrSessionNotFound() *errx.Error     { return ErrRegistry.New(CodeSessionNotFound) }
func ErrInvalidState() *errx.Error        { return ErrRegistry.New(CodeInvalidState) }
func ErrOAuthEmailRequired() *errx.Error  { return ErrRegistry.New(CodeOAuthEmailRequired) }
func ErrUnknownProvider() *errx.Error     { return ErrRegistry.New(CodeUnknownProvider) }
func ErrOAuthProfileInvalid() *errx.Error { return ErrRegistry.New(CodeOAuthProfileInvalid) }
func ErrLinkConflict(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeLinkConflict, cause)
}

func ErrOAuthExchangeFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeOAuthExchangeFailed, cause)
}
