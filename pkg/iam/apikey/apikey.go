package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/kernel"
)

const (
	KeyPrefix           = "cvt_"
	KeyRandomLength     = 40
	DisplayPrefixLength = 12
)

const base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// APIKey is an organization-owned long-lived credential. Only the hash of the
// plaintext is stored.
type APIKey struct {
	ID             kernel.APIKeyID       `json:"id"`
	OrganizationID kernel.OrganizationID `json:"organization_id"`
	Name           string                `json:"name"`
	KeyHash        string                `json:"-"`
	KeyPrefix      string                `json:"key_prefix"`
	Scopes         []Scope               `json:"scopes"`
	RateLimit      int                   `json:"rate_limit"`
	IsActive       bool                  `json:"is_active"`
	ExpiresAt      *time.Time            `json:"expires_at,omitempty"`
	LastUsedAt     *time.Time            `json:"last_used_at,omitempty"`
	CreatedBy      kernel.UserID         `json:"created_by"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// IsUsable reports whether the key itself may authenticate. Billing state is
// checked separately.
func (k *APIKey) IsUsable(now time.Time) bool {
	return k.IsActive && !k.IsExpired(now)
}

func (k *APIKey) Deactivate(now time.Time) {
	k.IsActive = false
	k.UpdatedAt = now
}

// ValidatedKey is what a successful validation exposes to callers.
type ValidatedKey struct {
	ID             kernel.APIKeyID
	OrganizationID kernel.OrganizationID
	Scopes         []Scope
	RateLimit      int
}

func (v *ValidatedKey) Principal() *kernel.APIKeyPrincipal {
	scopes := make([]string, len(v.Scopes))
	for i, s := range v.Scopes {
		scopes[i] = string(s)
	}
	return &kernel.APIKeyPrincipal{
		KeyID:          v.ID,
		OrganizationID: v.OrganizationID,
		Scopes:         scopes,
		RateLimit:      v.RateLimit,
	}
}

// ============================================================================
// Generation
// ============================================================================

// GeneratedKey holds the plaintext, which is shown exactly once.
type GeneratedKey struct {
	Key       string
	Hash      string
	KeyPrefix string
}

// GenerateAPIKey returns a cvt_ key with a 40 character base62 suffix.
func GenerateAPIKey() (*GeneratedKey, error) {
	return GenerateAPIKeyWith(KeyPrefix, KeyRandomLength)
}

func GenerateAPIKeyWith(prefix string, length int) (*GeneratedKey, error) {
	suffix, err := randomBase62(length)
	if err != nil {
		return nil, ErrGenerationFailed().WithCause(err)
	}
	key := prefix + suffix

	display := key
	if len(display) > DisplayPrefixLength {
		display = display[:DisplayPrefixLength]
	}
	return &GeneratedKey{Key: key, Hash: HashAPIKey(key), KeyPrefix: display}, nil
}

// HashAPIKey is the lookup hash for a plaintext key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// LooksLikeKey is a cheap format check run before any store lookup.
func LooksLikeKey(key string) bool {
	return LooksLikeKeyWith(key, KeyPrefix, KeyRandomLength)
}

// LooksLikeKeyWith checks key against the format GenerateAPIKeyWith produces
// for the same prefix and length.
func LooksLikeKeyWith(key, prefix string, length int) bool {
	if !strings.HasPrefix(key, prefix) || len(key) != len(prefix)+length {
		return false
	}
	for _, c := range key[len(prefix):] {
		if !strings.ContainsRune(base62, c) {
			return false
		}
	}
	return true
}

// randomBase62 uses rejection sampling so every character is equally likely.
func randomBase62(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 248 {
				continue
			}
			out = append(out, base62[b%62])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// ============================================================================
// DTOs
// ============================================================================

type CreateAPIKeyRequest struct {
	Name          string   `json:"name"`
	Scopes        []string `json:"scopes"`
	RateLimit     *int     `json:"rate_limit,omitempty"`
	ExpiresInDays *int     `json:"expires_in_days,omitempty"`
}

type CreateAPIKeyResponse struct {
	APIKey    *APIKey `json:"api_key"`
	SecretKey string  `json:"secret_key"`
	Message   string  `json:"message"`
}

type APIKeyListResponse struct {
	APIKeys []*APIKey `json:"api_keys"`
	Total   int       `json:"total"`
}
