/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error logs
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/areas/*        Area management and selection
  /api/villages/*     Villages of the selected area
  /api/customers/*    Customers, summaries, history
  /api/loans, /api/payments, /api/expenses, /api/capital, /api/adjustments
  /api/events         Event list
  /api/dashboard      Dashboard
  /api/scenarios/*    Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins uses DefaultAllowedOrigins.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/areas", func(r chi.Router) {
			r.Get("/", h.ListAreas)
			r.Post("/", h.CreateArea)
			r.Get("/selected", h.SelectedArea)
			r.Post("/{id}/select", h.SelectArea)
			r.Delete("/{id}", h.DeleteArea)
		})

		r.Route("/villages", func(r chi.Router) {
			r.Get("/", h.ListVillages)
			r.Post("/", h.CreateVillage)
			r.Delete("/{id}", h.DeleteVillage)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/groups", h.CustomerGroups)
			r.Get("/{id}", h.GetCustomer)
			r.Delete("/{id}", h.DeleteCustomer)
			r.Get("/{id}/summary", h.CustomerSummary)
			r.Get("/{id}/sections", h.CustomerSections)
			r.Get("/{id}/events", h.CustomerEvents)
		})

		r.Post("/loans", h.CreateLoan)
		r.Post("/loans/renew", h.RenewLoan)
		r.Post("/payments", h.MakePayment)
		r.Post("/expenses", h.AddExpense)
		r.Post("/capital", h.AddCapital)
		r.Post("/adjustments", h.CreateAdjustment)

		r.Get("/events", h.ListEvents)
		r.Get("/dashboard", h.Dashboard)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
