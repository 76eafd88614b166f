package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/savegress/finboard/internal/config"
)

// NewRouter builds the HTTP routing tree. The webhook route authenticates by
// payload signature; everything under /api/v1 requires a JWT.
func NewRouter(cfg *config.Config, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Get("/health", HandleHealth())

	r.Post("/webhooks/belvo", h.HandleBelvoWebhook())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg))

		r.Get("/transactions", h.HandleListTransactions())
		r.Patch("/transactions/{id}/categorize", h.HandleRecategorize())

		r.Get("/categories", h.HandleListCategories())
		r.Post("/categories", h.HandleCreateCategory())

		r.Get("/rules", h.HandleListRules())

		r.Get("/reports/summary", h.HandleCategorySummary())

		r.Get("/ingest/records", h.HandleListRawRecords())
		r.Post("/ingest/records/{id}/retry", h.HandleRetryRawRecord())

		r.Post("/belvo/widget-token", h.HandleCreateWidgetToken())
		r.Post("/links", h.HandleRegisterLink())
	})

	return r
}
