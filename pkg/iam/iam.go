package iam

import (
	"strings"

	"github.com/Abraxas-365/clientportal/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IAM")

var (
	CodeUnauthenticated = ErrRegistry.Register("UNAUTHENTICATED", errx.TypeUnauthenticated, "Authentication required")
	CodeUnverified      = ErrRegistry.Register("UNVERIFIED", errx.TypeUnverified, "Email address is not verified")
	CodeForbidden       = ErrRegistry.Register("FORBIDDEN", errx.TypeForbidden, "Access denied")
	CodeUnavailable     = ErrRegistry.Register("UNAVAILABLE", errx.TypeUnavailable, "Identity store unavailable")
)

func ErrUnauthenticated() *errx.Error { return ErrRegistry.New(CodeUnauthenticated) }
func ErrUnverified() *errx.Error      { return ErrRegistry.New(CodeUnverified) }
func ErrForbidden() *errx.Error       { return ErrRegistry.New(CodeForbidden) }

// ErrUnavailable wraps a store failure so it is never mistaken for a rejection.
func ErrUnavailable(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeUnavailable, cause)
}

// OAuthProvider represents supported OAuth providers
type OAuthProvider string

const (
	OAuthProviderGoogle OAuthProvider = "GOOGLE"
)

// ParseOAuthProvider accepts the lower-case path form ("google").
func ParseOAuthProvider(s string) (OAuthProvider, bool) {
	switch p := OAuthProvider(strings.ToUpper(s)); p {
	case OAuthProviderGoogle:
		return p, true
	default:
		return "", false
	}
}

// Slug is the lower-case form used in URLs and the external_accounts table.
func (p OAuthProvider) Slug() string {
	return strings.ToLower(string(p))
}
