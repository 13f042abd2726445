package note

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
	g := api.Group("/notes")
	g.POST("", h.CreateNote, auth.RequireRole(auth.RoleProvider))
	g.GET("", h.ListNotes, auth.RequireRole(readRoles...))
	g.GET("/:id", h.GetNote, auth.RequireRole(readRoles...))
	g.PATCH("/:id", h.UpdateNote, auth.RequireRole(auth.RoleProvider))
	g.POST("/:id/transition", h.TransitionNote, auth.RequireRole(Permissions.Roles()...))
}

type transitionRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) CreateNote(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Invalidf("invalid request body")
	}
	n, err := h.svc.Create(c.Request().Context(), rc, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNote(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.Get(c.Request().Context(), rc, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNotes(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{Status: Status(c.QueryParam("status"))}
	if p := c.QueryParam("patient_id"); p != "" {
		pid, err := uuid.Parse(p)
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

func (h *Handler) UpdateNote(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Invalidf("invalid request body")
	}
	n, err := h.svc.Update(c.Request().Context(), rc, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) TransitionNote(c echo.Context) error {
	rc, err := auth.FromEcho(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return apperr.Invalidf("status is required")
	}
	n, err := h.svc.Transition(c.Request().Context(), rc, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Invalidf("invalid id")
	}
	return id, nil
}
