package errx

// Common error constructors for convenience

// Unauthenticated creates an error for a missing or invalid credential
func Unauthenticated(message string) *Error {
	return New(message, TypeUnauthenticated)
}

// Unverified creates an error for an identity whose email is unconfirmed
func Unverified(message string) *Error {
	return New(message, TypeUnverified)
}

// Forbidden creates an error for an identity lacking a role or scope
func Forbidden(message string) *Error {
	return New(message, TypeForbidden)
}

// NotFound creates a not found error
func NotFound(message string) *Error {
	return New(message, TypeNotFound)
}

// Conflict creates a conflict error
func Conflict(message string) *Error {
	return New(message, TypeConflict)
}

// Malformed creates an error for structurally invalid input
func Malformed(message string) *Error {
	return New(message, TypeMalformed)
}

// Unavailable creates an error for store or upstream failures
func Unavailable(message string) *Error {
	return New(message, TypeUnavailable)
}

// Internal creates an internal server error
func Internal(message string) *Error {
	return New(message, TypeInternal)
}
