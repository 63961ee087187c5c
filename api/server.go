/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the planning frontend

ROUTE GROUPS:
  /api/establishments/{est}/*   Settings, staff, requests, schedule generation
  /api/employees/{id}/*         Per-employee operations
  /api/schedules/{id}/*         Editing, validation, publish and review
  /api/admin/*                  Operational triggers
  /healthz                      Liveness

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
)

// NewRouter creates a new router with all routes configured. origins lists
// the allowed CORS origins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/establishments/{est}", func(r chi.Router) {
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.PutSettings)

			r.Get("/employees", h.ListEmployees)
			r.Post("/employees", h.SaveEmployee)

			r.Get("/permanent-requests", h.ListPermanentRequests)
			r.Post("/permanent-requests", h.CreatePermanentRequest)

			r.Get("/time-off", h.ListTimeOff)
			r.Post("/time-off", h.CreateTimeOff)

			r.Get("/schedules", h.FindSchedule)
			r.Post("/schedules", h.CreateSchedule)
		})

		r.Route("/employees/{id}", func(r chi.Router) {
			r.Post("/overrides", h.AddHoursOverride)
		})

		r.Route("/schedules/{id}", func(r chi.Router) {
			r.Get("/", h.GetSchedule)
			r.Patch("/shifts/{shiftID}", h.UpdateShift)
			r.Get("/validation", h.ValidateSchedule)
			r.Post("/publish", h.Publish)
			r.Post("/approval", h.DecideApproval)
			r.Post("/modification-request", h.RequestModification)
			r.Post("/modification", h.DecideModification)
			r.Get("/balances", h.Balances)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/drafts", h.GenerateDrafts)
		})
	})

	return r
}
