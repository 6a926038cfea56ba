/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. logging:    Request-scoped slog logger carrying the request id
  5. CORS:       Cross-origin requests for the dashboard SPA

ROUTE GROUPS:
  /api/health           Liveness + database ping
  /api/charts/*         Monthly / daily sales charts
  /api/dashboard/*      Summary counts
  /api/transactions     Sales ledger
  /api/workflow/*       Transition dry-run
  /api/tickets/*        Support desk
  /api/withdrawals/*    Payouts
  /api/sales/*          Promotions / manual sales
  /api/products/*       Catalog
  /api/audit            Audit trail
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. The acting admin is taken from X-Admin-ID
  or the request body and recorded, never verified.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/admin-console/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	Logger      *logging.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = h.Logger
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(logger, middleware.GetReqID))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderAdminID},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Chart routes
		r.Route("/charts", func(r chi.Router) {
			r.Get("/monthly", h.MonthlyChart)
			r.Get("/daily", h.DailyChart)
			r.Get("/{granularity}/html", h.ChartHTML)
		})

		r.Get("/dashboard/summary", h.DashboardSummary)

		// Ledger routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
		})

		r.Post("/workflow/validate", h.ValidateTransition)
		r.Get("/audit", h.ListAudit)

		// Ticket routes
		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.ListTickets)
			r.Post("/", h.CreateTicket)
			r.Get("/{id}", h.GetTicket)
			r.Patch("/{id}/status", h.UpdateTicketStatus)
			r.Post("/{id}/close", h.CloseTicket)
			r.Post("/{id}/reopen", h.ReopenTicket)
		})

		// Withdrawal routes
		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", h.ListWithdrawals)
			r.Post("/", h.CreateWithdrawal)
			r.Get("/{id}", h.GetWithdrawal)
			r.Patch("/{id}", h.UpdateWithdrawal)
		})

		// Sale routes
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.CreateSale)
			r.Get("/{id}", h.GetSale)
			r.Put("/{id}", h.ReviewSale)
		})

		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
			r.Patch("/{id}/status", h.SetProductStatus)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
