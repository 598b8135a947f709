package errx

import "net/http"

// Type represents the category of error
type Type string

const (
	// TypeUnauthenticated means no credential, or one that failed verification
	TypeUnauthenticated Type = "UNAUTHENTICATED"

	// TypeUnverified means a valid credential whose email is not confirmed yet
	TypeUnverified Type = "UNVERIFIED"

	// TypeForbidden means a verified identity without the required role or scope
	TypeForbidden Type = "FORBIDDEN"

	// TypeNotFound represents resource not found errors
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents uniqueness violations
	TypeConflict Type = "CONFLICT"

	// TypeMalformed represents structurally invalid input
	TypeMalformed Type = "MALFORMED"

	// TypeUnavailable represents store or upstream failures
	TypeUnavailable Type = "UNAVAILABLE"

	// TypeRateLimited means the caller exceeded its request allowance
	TypeRateLimited Type = "RATE_LIMITED"

	// TypeInternal represents programmer or configuration errors
	TypeInternal Type = "INTERNAL"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}

// typeToHTTPStatus maps error types to HTTP status codes
func typeToHTTPStatus(t Type) int {
	switch t {
	case TypeUnauthenticated:
		return http.StatusUnauthorized
	case TypeUnverified, TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeMalformed:
		return http.StatusBadRequest
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	case TypeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
