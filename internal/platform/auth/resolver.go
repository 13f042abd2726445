package auth

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
)

// Identity is what a CredentialVerifier extracts from a valid credential.
type Identity struct {
	UserID   string
	Role     string
	TenantID string
}

// CredentialVerifier checks a raw bearer credential (signature, expiry,
// issuer) and returns the identity it asserts.
type CredentialVerifier interface {
	Verify(token string) (Identity, error)
}

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Resolver turns bearer credentials into RequestContexts.
type Resolver struct {
	verifier CredentialVerifier
}

func NewResolver(v CredentialVerifier) *Resolver {
	return &Resolver{verifier: v}
}

// Resolve verifies raw and builds the RequestContext. requestID is used for
// correlation when supplied, otherwise a new one is generated.
func (r *Resolver) Resolve(raw, requestID string) (RequestContext, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RequestContext{}, apperr.Unauthenticatedf("missing credential")
	}

	id, err := r.verifier.Verify(raw)
	if err != nil {
		return RequestContext{}, apperr.Unauthenticatedf("invalid credential")
	}

	if id.UserID == "" || id.Role == "" || id.TenantID == "" {
		return RequestContext{}, apperr.MalformedContextf("credential lacks user, role or tenant")
	}
	role, ok := ParseRole(id.Role)
	if !ok {
		return RequestContext{}, apperr.MalformedContextf("unknown role %q", id.Role)
	}
	if !tenantIDPattern.MatchString(id.TenantID) {
		return RequestContext{}, apperr.MalformedContextf("invalid tenant identifier")
	}

	if requestID == "" {
		requestID = uuid.NewString()
	}
	return RequestContext{
		userID:    id.UserID,
		role:      role,
		tenantID:  id.TenantID,
		requestID: requestID,
	}, nil
}

// NewRequestContext builds a RequestContext directly. It is meant for trusted
// in-process callers such as tests and CLI tooling; HTTP traffic must go
// through Resolve.
func NewRequestContext(userID string, role Role, tenantID, requestID string) RequestContext {
	return RequestContext{userID: userID, role: role, tenantID: tenantID, requestID: requestID}
}
