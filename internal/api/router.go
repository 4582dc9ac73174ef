package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router.
type RouterConfig struct {
	// BackendAPIKey must be sent in X-API-Key or Authorization: Bearer <key>.
	// If empty, auth middleware is skipped (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CorsAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		r.Get("/trends", h.ListTrends)

		// Campaigns
		r.Get("/campaigns", h.ListCampaigns)
		r.Post("/campaigns", h.CreateCampaign)
		r.Get("/campaigns/{id}", h.GetCampaign)
		r.Get("/campaigns/{id}/download", h.GetCampaignDownload)
		r.Get("/campaigns/{id}/assets", h.GetCampaignAssets)
		r.Post("/campaigns/{id}/publish", h.PublishCampaign)
		r.Get("/campaigns/{id}/debug/jobs", h.GetCampaignJobs)

		// Post history
		r.Get("/posts", h.ListPosts)
		r.Get("/posts/{id}/insights", h.GetPostInsights)
		r.Delete("/posts/{id}", h.DeletePost)
	})

	return r
}

func allowedOrigins(setting string) []string {
	var origins []string
	for _, o := range strings.Split(setting, ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
