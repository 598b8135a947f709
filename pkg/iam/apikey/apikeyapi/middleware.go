package apikeyapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam/apikey"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const HeaderAPIKey = "X-API-Key"

// KeyAuthorizer is what the middleware needs from the key service.
type KeyAuthorizer interface {
	Authorize(ctx context.Context, plaintext string, scope apikey.Scope) (*apikey.ValidatedKey, error)
	KeyPrefix() string
}

type bucket struct {
	lim      *rate.Limiter
	perMin   int
	lastSeen time.Time
}

// APIKeyMiddleware authenticates machine clients and applies each key's
// per-minute rate limit.
type APIKeyMiddleware struct {
	keys KeyAuthorizer

	mu      sync.Mutex
	buckets map[kernel.APIKeyID]*bucket
	idleTTL time.Duration
}

func NewAPIKeyMiddleware(keys KeyAuthorizer) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		keys:    keys,
		buckets: make(map[kernel.APIKeyID]*bucket),
		idleTTL: 10 * time.Minute,
	}
}

// Require rejects requests without a key granting scope.
func (m *APIKeyMiddleware) Require(scope apikey.Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractKey(c, m.keys.KeyPrefix())
		if raw == "" {
			return apikey.ErrInvalid().WithDetail("reason", "missing")
		}

		key, err := m.keys.Authorize(c.UserContext(), raw, scope)
		if err != nil {
			return err
		}

		if !m.allow(key, time.Now()) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return apikey.ErrRateLimited().WithDetail("key_id", key.ID.String())
		}

		c.Locals(string(kernel.APIKeyKey), key.Principal())
		return c.Next()
	}
}

func (m *APIKeyMiddleware) allow(key *apikey.ValidatedKey, now time.Time) bool {
	if key.RateLimit <= 0 {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.idleTTL {
			delete(m.buckets, id)
		}
	}

	b, ok := m.buckets[key.ID]
	if !ok || b.perMin != key.RateLimit {
		b = &bucket{
			lim:    rate.NewLimiter(rate.Limit(float64(key.RateLimit)/60), key.RateLimit),
			perMin: key.RateLimit,
		}
		m.buckets[key.ID] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// extractKey prefers X-API-Key and falls back to a bearer token that looks
// like a key minted with prefix.
func extractKey(c *fiber.Ctx, prefix string) string {
	if k := strings.TrimSpace(c.Get(HeaderAPIKey)); k != "" {
		return k
	}
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		token := strings.TrimSpace(h[7:])
		if strings.HasPrefix(token, prefix) {
			return token
		}
	}
	return ""
}

// GetPrincipal returns the key principal attached by Require.
func GetPrincipal(c *fiber.Ctx) (*kernel.APIKeyPrincipal, bool) {
	p, ok := c.Locals(string(kernel.APIKeyKey)).(*kernel.APIKeyPrincipal)
	return p, ok && p != nil
}
