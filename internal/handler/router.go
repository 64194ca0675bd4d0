package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hiroki-koketsu/go-task-manager/internal/auth"
)

// NewRouter assembles the API: standard middleware, an untraced /health and
// the authenticated task routes under /api/tasks, all wrapped in otelhttp.
func NewRouter(h *TaskHandler, verifier auth.Verifier, logger *slog.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(verifier, logger))
		r.Mount("/tasks", h.Routes())
	})

	return otelhttp.NewHandler(r, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	)
}
