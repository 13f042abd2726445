package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(newTestVerifier(t))
}

func TestMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Middleware(newTestResolver(t))(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			called := false
			h := Middleware(newTestResolver(t))(func(c echo.Context) error {
				called = true
				return nil
			})
			err := h(c)
			if !errors.Is(err, apperr.ErrUnauthenticated) {
				t.Fatalf("expected Unauthenticated, got %v", err)
			}
			if called {
				t.Error("handler must not run")
			}
		})
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	tokenStr := createTestToken(t, validClaims(), testSigningKey)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-42")

	var got RequestContext
	h := Middleware(newTestResolver(t))(func(c echo.Context) error {
		rc, err := FromEcho(c)
		if err != nil {
			return err
		}
		got = rc
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID() != "user-123" || got.TenantID() != "clinic_a" || got.Role() != RoleProvider {
		t.Errorf("unexpected context %+v", got)
	}
	if got.RequestID() != "req-42" {
		t.Errorf("expected request id to be propagated, got %q", got.RequestID())
	}
	if c.Get("tenant_id") != "clinic_a" {
		t.Errorf("expected tenant_id on echo context")
	}
}

func TestMiddleware_TokenWithoutTenant(t *testing.T) {
	claims := validClaims()
	claims.TenantID = ""
	tokenStr := createTestToken(t, claims, testSigningKey)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	c := e.NewContext(req, httptest.NewRecorder())

	h := Middleware(newTestResolver(t))(func(c echo.Context) error { return nil })
	if err := h(c); !errors.Is(err, apperr.ErrMalformedContext) {
		t.Fatalf("expected MalformedContext, got %v", err)
	}
}

func TestFromEcho_Missing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, err := FromEcho(c); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}
