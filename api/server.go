/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     httplog request logging, ECS schema
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend
  5. Timeout:    Per-request deadline carried on the context
  6. RateLimit:  Per-IP token bucket on mutating /api routes

ROUTE GROUPS:
  /api/employees/*      Employees and their requests
  /api/requests/*       Request lifecycle
  /api/availability/*   Staffing levels and shortages
  /api/stats            Dashboard counters
  /api/roles/*          Role reference data
  /api/locations/*      Location reference data
  /api/scenarios/*      Demo data
  /metrics              Prometheus
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/leave/serve.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RouterConfig holds the middleware settings.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	RateLimit      rate.Limit
	RateBurst      int
	Logger         *slog.Logger
}

// DefaultRouterConfig mirrors the configuration defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSOrigins:    []string{"*"},
		RequestTimeout: 10 * time.Second,
		RateLimit:      20,
		RateBurst:      40,
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = h.Logger
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	limiter := NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)

	// API routes
	r.Route("/api", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(limiter.Middleware)

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/requests", h.ListEmployeeRequests)
			r.Post("/{id}/requests", h.SubmitRequest)
			r.Post("/{id}/requests/validate", h.ValidateRequest)
			r.Get("/{id}/calendar", h.GetCalendar)
			r.Get("/{id}/pending-count", h.GetPendingCount)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.GetRequest)
			r.Put("/{id}", h.EditRequest)
			r.Delete("/{id}", h.DeleteRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/deny", h.DenyRequest)
		})

		r.Route("/availability", func(r chi.Router) {
			r.Get("/", h.GetAvailability)
			r.Get("/shortages", h.GetShortages)
			r.Get("/today", h.GetToday)
		})

		r.Get("/stats", h.GetStats)

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", h.ListRoles)
			r.Post("/", h.SaveRole)
			r.Put("/{id}", h.SaveRole)
			r.Delete("/{id}", h.DeleteRole)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListLocations)
			r.Post("/", h.SaveLocation)
			r.Put("/{id}", h.SaveLocation)
			r.Delete("/{id}", h.DeleteLocation)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
