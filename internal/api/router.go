// Package api implements the Control API: the operator-facing HTTP surface
// for status, start/stop of individual collaborators, and configuration
// inspection/update.
package api

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

//go:embed dashboard
var dashboardFS embed.FS

// Router builds and serves the Control API.
type Router struct {
	handler *Handler
}

// NewRouter constructs a Router backed by handler.
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Setup configures the full chi route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	dashboard, err := fs.Sub(dashboardFS, "dashboard")
	if err == nil {
		r.Get("/", http.FileServer(http.FS(dashboard)).ServeHTTP)
	}

	r.Get("/api/status", router.handler.Status)
	r.Get("/api/config", router.handler.GetConfig)
	r.Post("/api/config/update", router.handler.UpdateConfig)
	r.Post("/api/control/start", router.handler.Start)
	r.Post("/api/control/stop", router.handler.Stop)

	return r
}
