package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Rate limiting is applied globally per client IP.
func NewRouter(handlers *Handlers, checks map[string]Pinger, requestsPerMinute int, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandlerFunc(checks, log))

		r.Post("/sessions", handlers.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetSession)
			r.Delete("/", handlers.DeleteSession)
			r.Put("/input", handlers.SetInput)
			r.Post("/selection", handlers.Select)
		})
	})

	return r
}

var _ http.Handler = (*chi.Mux)(nil)
