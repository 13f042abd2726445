package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqlaanai/dr-amal2-sub000/internal/config"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/audit"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
)

const testKey = "0123456789abcdef0123456789abcdef"

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureRecorder) Record(e audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *captureRecorder) all() []audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Entry(nil), c.entries...)
}

func newTestServer(t *testing.T, pinger fakePinger) (http.Handler, *captureRecorder) {
	t.Helper()
	verifier, err := auth.NewJWTVerifier(auth.JWTConfig{SigningKey: []byte(testKey)})
	require.NoError(t, err)
	rec := &captureRecorder{}
	cfg := &config.Config{Env: "test", CORSOrigins: []string{"http://localhost:3000"}}
	e := newServer(cfg, zerolog.Nop(), serverDeps{
		pinger:   pinger,
		verifier: verifier,
		recorder: rec,
		pending:  func() int { return 3 },
	})
	return e, rec
}

func bearer(t *testing.T, user string, role auth.Role, tenant string) string {
	t.Helper()
	tok, _, err := auth.NewTokenIssuer([]byte(testKey), "", "", time.Hour).Issue(user, role, tenant)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestServer_Health(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 3, body["audit_pending"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_HealthUnhealthy(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{err: errors.New("connection refused")})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_RequiresCredential(t *testing.T) {
	h, rec := newTestServer(t, fakePinger{})
	for _, path := range []string{"/api/v1/notes", "/api/v1/prescriptions", "/api/v1/sessions", "/api/v1/audit-logs"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code"`)
		})
	}
	assert.Empty(t, rec.all(), "unauthenticated requests carry no tenant to audit under")
}

func TestServer_ForbiddenIsAudited(t *testing.T) {
	h, rec := newTestServer(t, fakePinger{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes",
		strings.NewReader(`{"patient_id":"7b7c2a52-4c8e-4d8c-9b59-5d1f6e0c3a11"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "parent-1", auth.RoleParent, "clinic_a"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionAccessDenied, entries[0].Action)
	assert.Equal(t, "clinic_a", entries[0].TenantID)
	assert.Equal(t, "parent-1", entries[0].ActorID)
	assert.Equal(t, "notes", entries[0].EntityType)
}

func TestServer_SecurityHeaders(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
