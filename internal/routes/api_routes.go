package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/SamSjosten/FitChallenge-sub003/internal/api"
	"github.com/SamSjosten/FitChallenge-sub003/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, deps *api.Dependencies, limiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(v1 chi.Router) {
		// all routes must be authenticated
		v1.Use(middleware.AuthMiddleware(deps.Services.Tokens))
		v1.Use(limiter.Middleware)

		v1.Route("/health", func(health chi.Router) {
			health.Get("/connection", handlers.GetConnectionStatus())
			health.Post("/connect", handlers.Connect())
			health.Post("/disconnect", handlers.Disconnect())
			health.Post("/sync", handlers.TriggerSync())
			health.Get("/sync/history", handlers.GetSyncHistory())
			health.Get("/records", handlers.GetRecentRecords())
		})
	})
}
