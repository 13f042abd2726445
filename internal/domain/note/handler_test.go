package note

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/middleware"
)

var handlerKey = []byte("handler-test-signing-key-32-bytes!!")

type testServer struct {
	e      *echo.Echo
	svc    *Service
	issuer *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	svc, _, _ := newTestService()
	v, err := auth.NewJWTVerifier(auth.JWTConfig{SigningKey: handlerKey})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop())
	e.Use(middleware.RequestID())
	api := e.Group("/api/v1", auth.Middleware(auth.NewResolver(v)))
	NewHandler(svc).RegisterRoutes(api)
	return &testServer{e: e, svc: svc, issuer: auth.NewTokenIssuer(handlerKey, "", "", time.Hour)}
}

func (s *testServer) do(t *testing.T, method, path, body, user string, role auth.Role, tenant string) *httptest.ResponseRecorder {
	t.Helper()
	tok, _, err := s.issuer.Issue(user, role, tenant)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAndFinalize(t *testing.T) {
	s := newTestServer(t)
	body := `{"patient_id":"` + uuid.NewString() + `","subjective":"sore throat"}`
	rec := s.do(t, http.MethodPost, "/api/v1/notes", body, "prov-a", auth.RoleProvider, "clinic_a")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "clinic_a") {
		t.Error("tenant id must not be rendered")
	}

	n, _, _ := s.svc.List(context.Background(), auth.NewRequestContext("prov-a", auth.RoleProvider, "clinic_a", "r"), ListFilter{}, 1, 0)
	if len(n) != 1 {
		t.Fatalf("expected stored note")
	}
	path := "/api/v1/notes/" + n[0].ID.String() + "/transition"

	rec = s.do(t, http.MethodPost, path, `{"status":"finalized"}`, "prov-a", auth.RoleProvider, "clinic_a")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, path, `{"status":"finalized"}`, "prov-a", auth.RoleProvider, "clinic_a")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"invalid_state_transition"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CrossTenantBodyMatchesMissing(t *testing.T) {
	s := newTestServer(t)
	n := createDraft(t, s.svc, providerA, "private")

	cross := s.do(t, http.MethodGet, "/api/v1/notes/"+n.ID.String(), "", "prov-x", auth.RoleProvider, "clinic_b")
	missing := s.do(t, http.MethodGet, "/api/v1/notes/"+uuid.NewString(), "", "prov-x", auth.RoleProvider, "clinic_b")

	if cross.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404/404, got %d/%d", cross.Code, missing.Code)
	}
	if cross.Body.String() != missing.Body.String() {
		t.Errorf("bodies differ:\n%s\n%s", cross.Body.String(), missing.Body.String())
	}

	crossT := s.do(t, http.MethodPost, "/api/v1/notes/"+n.ID.String()+"/transition", `{"status":"finalized"}`, "prov-x", auth.RoleProvider, "clinic_b")
	missingT := s.do(t, http.MethodPost, "/api/v1/notes/"+uuid.NewString()+"/transition", `{"status":"finalized"}`, "prov-x", auth.RoleProvider, "clinic_b")
	if crossT.Code != http.StatusNotFound || crossT.Body.String() != missingT.Body.String() {
		t.Errorf("cross-tenant transition distinguishable: %d %s vs %s", crossT.Code, crossT.Body.String(), missingT.Body.String())
	}
}

func TestHandler_Statuses(t *testing.T) {
	s := newTestServer(t)
	n := createDraft(t, s.svc, providerA, "x")
	empty := createDraft(t, s.svc, providerA, "")
	tr := func(id uuid.UUID) string { return "/api/v1/notes/" + id.String() + "/transition" }

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		user   string
		role   auth.Role
		want   int
	}{
		{"parent create", http.MethodPost, "/api/v1/notes", `{"patient_id":"` + uuid.NewString() + `"}`, "p", auth.RoleParent, http.StatusForbidden},
		{"missing patient", http.MethodPost, "/api/v1/notes", `{}`, "prov-a", auth.RoleProvider, http.StatusBadRequest},
		{"admin finalize", http.MethodPost, tr(n.ID), `{"status":"finalized"}`, "admin-a", auth.RoleAdmin, http.StatusForbidden},
		{"other provider", http.MethodPost, tr(n.ID), `{"status":"finalized"}`, "prov-b", auth.RoleProvider, http.StatusForbidden},
		{"empty note", http.MethodPost, tr(empty.ID), `{"status":"finalized"}`, "prov-a", auth.RoleProvider, http.StatusBadRequest},
		{"missing status", http.MethodPost, tr(n.ID), `{}`, "prov-a", auth.RoleProvider, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/v1/notes/not-a-uuid", "", "prov-a", auth.RoleProvider, http.StatusBadRequest},
		{"parent list", http.MethodGet, "/api/v1/notes", "", "p", auth.RoleParent, http.StatusOK},
		{"parent get", http.MethodGet, "/api/v1/notes/" + n.ID.String(), "", "p", auth.RoleParent, http.StatusNotFound},
		{"patch draft", http.MethodPatch, "/api/v1/notes/" + n.ID.String(), `{"plan":"rest"}`, "prov-a", auth.RoleProvider, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, tt.user, tt.role, "clinic_a")
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandler_ParentListIsEmptyPage(t *testing.T) {
	s := newTestServer(t)
	createDraft(t, s.svc, providerA, "x")

	rec := s.do(t, http.MethodGet, "/api/v1/notes", "", "p", auth.RoleParent, "clinic_a")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) || !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Errorf("expected empty page, got %s", rec.Body.String())
	}
}

func TestHandler_Unauthenticated(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
