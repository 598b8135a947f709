package kernel

import "context"

// Identity is the canonical identity produced after a bearer credential was
// verified and its subject re-read from the store.
type Identity struct {
	UserID        UserID `json:"userId"`
	Email         string `json:"email"`
	IsAdmin       bool   `json:"isAdmin"`
	EmailVerified bool   `json:"emailVerified"`
}

// APIKeyPrincipal is attached to requests authenticated with an API key.
type APIKeyPrincipal struct {
	KeyID          APIKeyID       `json:"keyId"`
	OrganizationID OrganizationID `json:"organizationId"`
	Scopes         []string       `json:"scopes"`
	RateLimit      int            `json:"rateLimit"`
}

type ContextKey string

const (
	// IdentityKey stores *Identity in fiber locals and context.Context
	IdentityKey ContextKey = "identity"

	// APIKeyKey stores *APIKeyPrincipal
	APIKeyKey ContextKey = "api_key"

	// RequestIDKey stores the request id
	RequestIDKey ContextKey = "request_id"
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*Identity)
	return id, ok && id != nil
}

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFrom returns the request id stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
