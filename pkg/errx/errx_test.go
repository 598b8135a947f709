package errx_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

var testRegistry = errx.NewRegistry("TEST")

var codeDenied = testRegistry.Register("DENIED", errx.TypeForbidden, "denied")

func TestRegistryCodesArePrefixedAndMapped(t *testing.T) {
	err := testRegistry.New(codeDenied)
	if err.Code != "TEST_DENIED" {
		t.Fatalf("expected TEST_DENIED, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", err.HTTPStatus)
	}
}

func TestTypeToStatus(t *testing.T) {
	cases := map[errx.Type]int{
		errx.TypeUnauthenticated: http.StatusUnauthorized,
		errx.TypeUnverified:      http.StatusForbidden,
		errx.TypeForbidden:       http.StatusForbidden,
		errx.TypeNotFound:        http.StatusNotFound,
		errx.TypeConflict:        http.StatusConflict,
		errx.TypeMalformed:       http.StatusBadRequest,
		errx.TypeUnavailable:     http.StatusServiceUnavailable,
		errx.TypeRateLimited:     http.StatusTooManyRequests,
		errx.TypeInternal:        http.StatusInternalServerError,
	}
	for typ, want := range cases {
		if got := errx.New("x", typ).HTTPStatus; got != want {
			t.Errorf("%s: expected %d, got %d", typ, want, got)
		}
	}
}

func TestWrapKeepsInnerCode(t *testing.T) {
	inner := testRegistry.New(codeDenied).WithDetail("who", "bob")
	wrapped := errx.Wrap(fmt.Errorf("ctx: %w", inner), "outer", errx.TypeInternal)

	if wrapped.Code != "TEST_DENIED" || wrapped.Type != errx.TypeForbidden {
		t.Fatalf("wrap lost inner identity: %+v", wrapped)
	}
	if wrapped.Details["who"] != "bob" {
		t.Fatalf("wrap lost details")
	}
	if !errors.Is(wrapped, testRegistry.New(codeDenied)) {
		t.Fatalf("errors.Is should match by code")
	}
}

func TestTypeOf(t *testing.T) {
	if errx.TypeOf(errors.New("plain")) != errx.TypeInternal {
		t.Fatalf("plain errors are internal")
	}
	if !errx.IsType(fmt.Errorf("x: %w", errx.Unavailable("db down")), errx.TypeUnavailable) {
		t.Fatalf("expected unavailable through wrapping")
	}
	if errx.IsType(nil, errx.TypeInternal) {
		t.Fatalf("nil has no type")
	}
}

func TestFiberHandlerRendersTaxonomy(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errx.FiberHandler})
	app.Get("/denied", func(c *fiber.Ctx) error {
		return testRegistry.New(codeDenied)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/denied", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var out errx.HTTPErrorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("bad body %s: %v", body, err)
	}
	if out.Code != "TEST_DENIED" || out.Type != "FORBIDDEN" {
		t.Fatalf("unexpected body %+v", out)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
