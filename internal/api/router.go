package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramonehamilton/cardfinder/internal/api/handlers"
	"github.com/ramonehamilton/cardfinder/internal/api/response"
	"github.com/ramonehamilton/cardfinder/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// Prometheus scrape endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.serialize)

		// Card routes
		cardHandler := handlers.NewCardHandler(s.catalog, s.recomputer)
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cardHandler.ListVisible)
			r.Get("/catalog", cardHandler.GetCatalog)
			r.Get("/{cd}", cardHandler.GetCard)
		})

		// Filter routes
		filterHandler := handlers.NewFilterHandler(s.recomputer)
		r.Route("/filter", func(r chi.Router) {
			r.Get("/", filterHandler.GetFilter)
			r.Put("/", filterHandler.SetFilter)
			r.Put("/keyword", filterHandler.SetKeyword)
			r.Post("/recompute", filterHandler.Recompute)
		})

		// Ownership routes
		ownershipHandler := handlers.NewOwnershipHandler(s.ownership, s.catalog)
		r.Route("/ownership", func(r chi.Router) {
			r.Get("/", ownershipHandler.List)
			r.Get("/summary", ownershipHandler.Summary)
			r.Get("/{cd}", ownershipHandler.Get)
			r.Put("/{cd}", ownershipHandler.Set)
			r.Put("/{cd}/total", ownershipHandler.SetTotal)
			r.Post("/{cd}/toggle", ownershipHandler.Toggle)
		})

		// Group routes
		groupHandler := handlers.NewGroupHandler(s.groups)
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", groupHandler.List)
			r.Post("/", groupHandler.Create)
			r.Get("/state", groupHandler.State)
			r.Delete("/active", groupHandler.ClearActive)
			r.Delete("/editing", groupHandler.StopEditing)
			r.Get("/{id}", groupHandler.Get)
			r.Put("/{id}", groupHandler.Rename)
			r.Delete("/{id}", groupHandler.Delete)
			r.Post("/{id}/move", groupHandler.Move)
			r.Post("/{id}/active", groupHandler.SetActive)
			r.Post("/{id}/toggle-active", groupHandler.ToggleActive)
			r.Post("/{id}/editing", groupHandler.StartEditing)
			r.Post("/{id}/cards/{cd}", groupHandler.ToggleCard)
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "cardfinder-api",
		"version": version.GetVersion(),
		"cards":   s.catalog.Current().Len(),
	})
}
