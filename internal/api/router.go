package api

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/eddigital/lti-blogs/internal/api/handler"
	"github.com/eddigital/lti-blogs/internal/api/middleware"
	"github.com/eddigital/lti-blogs/internal/launch"
	"github.com/eddigital/lti-blogs/internal/session"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Controller *launch.Controller
	Workflow   *launch.Workflow
	Sessions   session.Store
	DBPinger   handler.DBPinger
	Version    string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Session(deps.Sessions))

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	// LMSes POST launches, but some send signed GETs through redirects.
	r.Post("/lti/launch", deps.Controller.HandleLaunch)
	r.Get("/lti/launch", deps.Controller.HandleLaunch)

	r.Get("/lti/staff-view", deps.Workflow.HandleStaffView)

	return r
}
