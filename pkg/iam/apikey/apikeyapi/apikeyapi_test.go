package apikeyapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey/apikeyapi"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey/apikeysrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/organization"
	"github.com/gofiber/fiber/v2"
)

type memKeys struct {
	mu   sync.Mutex
	keys []*apikey.APIKey
}

func (m *memKeys) Create(_ context.Context, k *apikey.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, k)
	return nil
}

func (m *memKeys) FindByHash(_ context.Context, hash string) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.KeyHash == hash {
			return k, nil
		}
	}
	return nil, apikey.ErrNotFound()
}

func (m *memKeys) FindByID(_ context.Context, orgID kernel.OrganizationID, id kernel.APIKeyID) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.ID == id && k.OrganizationID == orgID {
			return k, nil
		}
	}
	return nil, apikey.ErrNotFound()
}

func (m *memKeys) ListByOrganization(_ context.Context, orgID kernel.OrganizationID) ([]*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*apikey.APIKey
	for _, k := range m.keys {
		if k.OrganizationID == orgID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memKeys) Deactivate(ctx context.Context, orgID kernel.OrganizationID, id kernel.APIKeyID, at time.Time) error {
	k, err := m.FindByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k.Deactivate(at)
	return nil
}

func (m *memKeys) TouchLastUsed(context.Context, kernel.APIKeyID, time.Time) error { return nil }

type ownerAuthz struct{}

func (ownerAuthz) Authorize(_ context.Context, actor *kernel.Identity, _ kernel.OrganizationID, action rbac.Action) error {
	var role *rbac.Role
	if actor.UserID == "owner" {
		r := rbac.RoleOwner
		role = &r
	}
	return rbac.Authorize(actor, role, action)
}

type activeBilling struct{}

func (activeBilling) BillingStatus(context.Context, kernel.OrganizationID) (organization.BillingStatus, error) {
	return organization.BillingStatusActive, nil
}

type tokenResolver struct{}

func (tokenResolver) Resolve(_ context.Context, token string) (*kernel.Identity, error) {
	if token == "owner" || token == "member" {
		return &kernel.Identity{UserID: kernel.UserID(token), EmailVerified: true}, nil
	}
	return nil, iam.ErrUnauthenticated()
}

func newApp(t *testing.T) (*fiber.App, *apikeysrv.APIKeyService) {
	t.Helper()
	return newAppWithConfig(t, config.APIKeyConfig{})
}

func newAppWithConfig(t *testing.T, cfg config.APIKeyConfig) (*fiber.App, *apikeysrv.APIKeyService) {
	t.Helper()
	svc := apikeysrv.NewAPIKeyService(&memKeys{}, ownerAuthz{}, activeBilling{}, nil, cfg)
	guard := auth.NewRouteGuard(tokenResolver{}, auth.GuardConfig{LoginPath: "/login"})

	app := fiber.New(fiber.Config{ErrorHandler: errx.FiberHandler})
	apikeyapi.NewAPIKeyHandlers(svc).RegisterRoutes(app, guard)

	mw := apikeyapi.NewAPIKeyMiddleware(svc)
	app.Get("/pos/transactions", mw.Require(apikey.ScopePOSRead), func(c *fiber.Ctx) error {
		p, _ := apikeyapi.GetPrincipal(c)
		return c.JSON(p)
	})
	app.Post("/pos/transactions", mw.Require(apikey.ScopePOSWrite), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app, svc
}

func send(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func createKey(t *testing.T, app *fiber.App, body string) apikey.CreateAPIKeyResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/org-1/api-keys", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer owner")
	resp := send(t, app, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	var out apikey.CreateAPIKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestKeyScopesAtTheBoundary(t *testing.T) {
	app, _ := newApp(t)
	created := createKey(t, app, `{"name":"register","scopes":["pos:read"]}`)

	req := httptest.NewRequest(http.MethodGet, "/pos/transactions", nil)
	req.Header.Set(apikeyapi.HeaderAPIKey, created.SecretKey)
	if resp := send(t, app, req); resp.StatusCode != http.StatusOK {
		t.Fatalf("granted scope: status %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/pos/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+created.SecretKey)
	if resp := send(t, app, req); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("missing scope: expected 403, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/pos/transactions", nil)
	req.Header.Set(apikeyapi.HeaderAPIKey, "cvt_garbage")
	if resp := send(t, app, req); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage key: expected 401, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/pos/transactions", nil)
	if resp := send(t, app, req); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key: expected 401, got %d", resp.StatusCode)
	}
}

func TestBearerKeyWithConfiguredPrefix(t *testing.T) {
	app, _ := newAppWithConfig(t, config.APIKeyConfig{Prefix: "pk_", RandomLength: 32})
	created := createKey(t, app, `{"name":"register","scopes":["pos:read"]}`)
	if !strings.HasPrefix(created.SecretKey, "pk_") {
		t.Fatalf("unexpected key %q", created.SecretKey)
	}

	req := httptest.NewRequest(http.MethodGet, "/pos/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+created.SecretKey)
	if resp := send(t, app, req); resp.StatusCode != http.StatusOK {
		t.Fatalf("bearer key: status %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/pos/transactions", nil)
	req.Header.Set(apikeyapi.HeaderAPIKey, created.SecretKey)
	if resp := send(t, app, req); resp.StatusCode != http.StatusOK {
		t.Fatalf("header key: status %d", resp.StatusCode)
	}
}

func TestRateLimitPerKey(t *testing.T) {
	app, _ := newApp(t)
	created := createKey(t, app, `{"name":"slow","scopes":["pos:read"],"rate_limit":2}`)
	other := createKey(t, app, `{"name":"other","scopes":["pos:read"],"rate_limit":2}`)

	status := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/pos/transactions", nil)
		req.Header.Set(apikeyapi.HeaderAPIKey, key)
		return send(t, app, req).StatusCode
	}

	for i := 0; i < 2; i++ {
		if s := status(created.SecretKey); s != http.StatusOK {
			t.Fatalf("request %d within burst: %d", i, s)
		}
	}
	if s := status(created.SecretKey); s != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", s)
	}
	if s := status(other.SecretKey); s != http.StatusOK {
		t.Fatalf("limits are per key, got %d", s)
	}
}

func TestKeyManagementRoutes(t *testing.T) {
	app, _ := newApp(t)
	created := createKey(t, app, `{"name":"register","scopes":["pos:read","pos:void"]}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/org-1/api-keys", nil)
	req.Header.Set("Authorization", "Bearer member")
	if resp := send(t, app, req); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-member list: expected 403, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/organizations/org-1/api-keys", nil)
	req.Header.Set("Authorization", "Bearer owner")
	resp := send(t, app, req)
	var list apikey.APIKeyListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || list.Total != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if list.APIKeys[0].KeyHash != "" {
		t.Fatalf("hash must not be serialized")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/organizations/org-1/api-keys/"+created.APIKey.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer owner")
	if resp := send(t, app, req); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke: %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/pos/transactions", nil)
	req.Header.Set(apikeyapi.HeaderAPIKey, created.SecretKey)
	if resp := send(t, app, req); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked key: expected 401, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/organizations/org-1/api-keys", strings.NewReader(`{"name":"x","scopes":["everything"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer owner")
	if resp := send(t, app, req); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown scope: expected 400, got %d", resp.StatusCode)
	}
}
