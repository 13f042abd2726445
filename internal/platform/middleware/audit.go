package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/audit"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
)

// AccessAudit records an access_denied entry for every request refused
// with Forbidden or OwnershipViolation. Only requests carrying a resolved
// context are recorded, under the caller's own tenant.
func AccessAudit(rec audit.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			kind := apperr.KindOf(err)
			if kind != apperr.Forbidden && kind != apperr.OwnershipViolation {
				return err
			}
			rc, ok := auth.FromContext(c.Request().Context())
			if !ok {
				return err
			}

			rec.Record(audit.Entry{
				TenantID:   rc.TenantID(),
				ActorID:    rc.UserID(),
				Action:     audit.ActionAccessDenied,
				EntityType: entityTypeOf(c.Request().URL.Path),
				EntityID:   c.Param("id"),
				Metadata: map[string]string{
					"reason":     kind.String(),
					"role":       string(rc.Role()),
					"method":     c.Request().Method,
					"path":       c.Request().URL.Path,
					"request_id": rc.RequestID(),
				},
			})
			return err
		}
	}
}

// entityTypeOf takes the collection segment after /api/v1/, e.g.
// /api/v1/notes/<id>/transition -> notes.
func entityTypeOf(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if rest == path {
		return "unknown"
	}
	seg, _, _ := strings.Cut(rest, "/")
	if seg == "" {
		return "unknown"
	}
	return seg
}
