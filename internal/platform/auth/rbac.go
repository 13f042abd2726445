package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
)

// GuardRoute passes when the caller's role is one of allowed. It is used for
// collection operations where no specific record is in hand yet.
func GuardRoute(rc RequestContext, allowed ...Role) error {
	if rc.IsZero() {
		return apperr.Unauthenticatedf("missing request context")
	}
	if hasRole(rc.Role(), allowed) {
		return nil
	}
	return apperr.Forbiddenf("role %s may not perform this operation", rc.Role())
}

// GuardRecord passes when the caller's role is allowed and the record belongs
// to the caller's tenant. A tenant mismatch is reported as NotFound for
// entityType so that the record's existence is never revealed.
func GuardRecord(rc RequestContext, allowed []Role, entityType, ownerTenantID string) error {
	if err := GuardRoute(rc, allowed...); err != nil {
		return err
	}
	if ownerTenantID == "" || ownerTenantID != rc.TenantID() {
		return apperr.NotFoundf(entityType)
	}
	return nil
}

// RequireRole returns middleware enforcing GuardRoute. Unlike a plain role
// check there is no implicit admin bypass: admins must be listed.
func RequireRole(allowed ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc, err := FromEcho(c)
			if err != nil {
				return err
			}
			if err := GuardRoute(rc, allowed...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func hasRole(r Role, allowed []Role) bool {
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}
