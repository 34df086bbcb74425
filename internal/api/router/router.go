// Package router assembles the HTTP API: public health/metrics endpoints and
// the session-protected booking surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bookline/bookline/internal/http/handlers"
	httpmiddleware "github.com/bookline/bookline/internal/http/middleware"
	"github.com/bookline/bookline/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	BookingHandler  *handlers.BookingHandler
	CalendarHandler *handlers.CalendarHandler
	OrgHandler      *handlers.OrgHandler
	SessionSecret   string
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Session-protected booking API.
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpmiddleware.SessionAuth(cfg.SessionSecret))
		if cfg.BookingHandler != nil {
			cfg.BookingHandler.Routes(api)
		}
		if cfg.CalendarHandler != nil {
			api.Get("/calendar", cfg.CalendarHandler.Layout)
		}
		if cfg.OrgHandler != nil {
			api.Get("/org", cfg.OrgHandler.Get)
			api.Put("/org/settings", cfg.OrgHandler.SaveSettings)
			api.Get("/org/hours", cfg.OrgHandler.ListHours)
			api.Put("/org/hours", cfg.OrgHandler.SaveHours)
		}
	})

	return r
}
