package apikey_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey"
)

func TestGenerateAPIKey(t *testing.T) {
	g, err := apikey.GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(g.Key, "cvt_") || len(g.Key) != 44 {
		t.Fatalf("unexpected key shape %q", g.Key)
	}
	if g.KeyPrefix != g.Key[:12] {
		t.Fatalf("display prefix %q is not the first 12 chars", g.KeyPrefix)
	}
	if g.Hash != apikey.HashAPIKey(g.Key) || len(g.Hash) != 64 {
		t.Fatalf("hash must be the deterministic sha256 hex of the key")
	}
	if !apikey.LooksLikeKey(g.Key) {
		t.Fatalf("generated key fails its own format check")
	}

	other, _ := apikey.GenerateAPIKey()
	if other.Key == g.Key {
		t.Fatalf("two generated keys collided")
	}
}

func TestLooksLikeKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"empty", "", false},
		{"wrong prefix", "sk_" + strings.Repeat("a", 40), false},
		{"short", "cvt_abc", false},
		{"bad alphabet", "cvt_" + strings.Repeat("-", 40), false},
		{"valid", "cvt_" + strings.Repeat("Z9", 20), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apikey.LooksLikeKey(tt.key); got != tt.want {
				t.Errorf("LooksLikeKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLooksLikeKeyWith(t *testing.T) {
	g, err := apikey.GenerateAPIKeyWith("pk_", 32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !apikey.LooksLikeKeyWith(g.Key, "pk_", 32) {
		t.Fatalf("custom-format key fails its own format check: %q", g.Key)
	}
	if apikey.LooksLikeKey(g.Key) {
		t.Fatalf("custom-format key should not pass the default check")
	}
	if apikey.LooksLikeKeyWith(g.Key, "pk_", 40) {
		t.Fatalf("length mismatch accepted")
	}
}

func TestParseScopes(t *testing.T) {
	scopes, err := apikey.ParseScopes([]string{"pos:read", " pos:write", "pos:read"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(scopes) != 2 {
		t.Fatalf("duplicates should collapse, got %v", scopes)
	}

	if _, err := apikey.ParseScopes([]string{"pos:read", "admin:*"}); !errx.IsType(err, errx.TypeMalformed) {
		t.Fatalf("unknown scope should be malformed, got %v", err)
	}
}

func TestHasScope(t *testing.T) {
	granted := []apikey.Scope{apikey.ScopePOSRead}
	if !apikey.HasScope(granted, apikey.ScopePOSRead) {
		t.Error("granted scope not found")
	}
	if apikey.HasScope(granted, apikey.ScopePOSWrite) {
		t.Error("read must not imply write")
	}
	if apikey.HasScope(nil, apikey.ScopePOSRead) {
		t.Error("empty grant must not match")
	}
}

func TestKeyLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := now.Add(time.Hour)
	k := &apikey.APIKey{IsActive: true, ExpiresAt: &exp}

	if !k.IsUsable(now) {
		t.Fatal("fresh key should be usable")
	}
	if k.IsUsable(exp) {
		t.Fatal("key is expired at its expiry instant")
	}

	k.Deactivate(now)
	if k.IsUsable(now) || !k.UpdatedAt.Equal(now) {
		t.Fatal("deactivated key should not be usable")
	}
}
