/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logger:     zap request logging (carries the request ID)
  4. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /healthz              Liveness and store ping
  /metrics              Prometheus scrape endpoint
  /api/accounts/*       Accounts, transactions, calculations, closure
  /api/transactions/*   Single-transaction operations
  /api/admin/*          Admin operations
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/icl-engine/observability"
)

// NewRouter creates a new router with all routes configured. metrics may
// be nil, in which case /metrics is not mounted.
func NewRouter(h *Handler, metrics *observability.Metrics) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.ZapLoggerMiddleware(h.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)

			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/transactions", h.AddTransaction)
			r.Delete("/{id}/transactions", h.DeleteAllTransactions)

			r.Get("/{id}/timeline", h.GetTimeline)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/settlement", h.GetSettlement)
			r.Post("/{id}/close", h.CloseLoan)
			r.Get("/{id}/export", h.ExportTimeline)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/recent", h.RecentTransactions)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/status-refresh", h.TriggerStatusRefresh)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
