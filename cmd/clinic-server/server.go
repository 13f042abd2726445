package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/aqlaanai/dr-amal2-sub000/internal/config"
	"github.com/aqlaanai/dr-amal2-sub000/internal/domain/note"
	"github.com/aqlaanai/dr-amal2-sub000/internal/domain/prescription"
	"github.com/aqlaanai/dr-amal2-sub000/internal/domain/session"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/audit"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/db"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/middleware"
)

type serverDeps struct {
	querier  db.Querier
	pinger   db.Pinger
	verifier auth.CredentialVerifier
	recorder audit.Recorder
	pending  func() int
}

func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	e.GET("/health", db.HealthHandler(deps.pinger, deps.pending))

	api := e.Group("/api/v1")
	api.Use(auth.Middleware(auth.NewResolver(deps.verifier)))
	api.Use(middleware.AccessAudit(deps.recorder))

	note.NewHandler(note.NewService(note.NewRepoPG(deps.querier), deps.recorder)).RegisterRoutes(api)
	prescription.NewHandler(prescription.NewService(prescription.NewRepoPG(deps.querier), deps.recorder)).RegisterRoutes(api)
	session.NewHandler(session.NewService(session.NewRepoPG(deps.querier), deps.recorder)).RegisterRoutes(api)
	audit.NewHandler(audit.NewService(audit.NewRepoPG(deps.querier))).RegisterRoutes(api)

	return e
}
