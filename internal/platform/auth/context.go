package auth

import (
	"context"
)

// Role is the caller's coarse authority level within a tenant.
type Role string

const (
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
	RoleParent   Role = "parent"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleProvider, RoleAdmin, RoleParent}
}

// ParseRole accepts only the known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleProvider, RoleAdmin, RoleParent:
		return Role(s), true
	}
	return "", false
}

// RequestContext is the resolved identity of one inbound operation. Fields are
// unexported so the value cannot be altered after the resolver builds it.
type RequestContext struct {
	userID    string
	role      Role
	tenantID  string
	requestID string
}

func (rc RequestContext) UserID() string    { return rc.userID }
func (rc RequestContext) Role() Role        { return rc.role }
func (rc RequestContext) TenantID() string  { return rc.tenantID }
func (rc RequestContext) RequestID() string { return rc.requestID }

// IsZero reports whether rc was never resolved.
func (rc RequestContext) IsZero() bool {
	return rc == RequestContext{}
}

type contextKey string

const requestContextKey contextKey = "request_context"

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext returns the RequestContext stored on ctx, if any.
func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(RequestContext)
	return rc, ok && !rc.IsZero()
}
