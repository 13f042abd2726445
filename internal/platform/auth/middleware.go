package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
)

// Middleware resolves the Authorization header into a RequestContext and
// stores it on the request. Requests without a usable bearer credential are
// rejected before any handler runs.
func Middleware(r *Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return apperr.Unauthenticatedf("missing authorization header")
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return apperr.Unauthenticatedf("invalid authorization format")
			}

			rid, _ := c.Get("request_id").(string)
			rc, err := r.Resolve(parts[1], rid)
			if err != nil {
				return err
			}

			c.Set("tenant_id", rc.TenantID())
			c.Set("user_id", rc.UserID())
			c.SetRequest(c.Request().WithContext(WithRequestContext(c.Request().Context(), rc)))
			return next(c)
		}
	}
}

// FromEcho returns the RequestContext placed by Middleware. Handlers
// reached without one report Unauthenticated rather than proceeding.
func FromEcho(c echo.Context) (RequestContext, error) {
	rc, ok := FromContext(c.Request().Context())
	if !ok {
		return RequestContext{}, apperr.Unauthenticatedf("missing request context")
	}
	return rc, nil
}
