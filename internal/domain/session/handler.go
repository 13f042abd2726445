package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
	"github.com/aqlaanai/dr-amal2-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/sessions")
	g.POST("", h.CreateSession, auth.RequireRole(auth.RoleProvider))
	g.GET("", h.ListSessions, auth.RequireRole(readRoles...))
	g.GET("/:id", h.GetSession, auth.RequireRole(readRoles...))
	g.POST("/:id/transition", h.TransitionSession, auth.RequireRole(Permissions.Roles()...))
}

func (h *Handler) CreateSession(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Invalidf("invalid request body")
	}
	ls, err := h.svc.Create(c.Request().Context(), rc, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ls)
}

func (h *Handler) GetSession(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Invalidf("invalid id")
	}
	ls, err := h.svc.Get(c.Request().Context(), rc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ls)
}

func (h *Handler) ListSessions(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{Status: Status(c.QueryParam("status"))}
	if v := c.QueryParam("patient_id"); v != "" {
		pid, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalidf("invalid patient_id")
		}
		f.PatientID = &pid
	}
	items, total, err := h.svc.List(c.Request().Context(), rc, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) TransitionSession(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Invalidf("invalid id")
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return apperr.Invalidf("status is required")
	}
	ls, err := h.svc.Transition(c.Request().Context(), rc, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ls)
}
