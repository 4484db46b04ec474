package server

import (
	"net/http"

	"github.com/cloo-solutions/mailsense/internal/api"
	"github.com/cloo-solutions/mailsense/internal/api/handlers"
	"github.com/cloo-solutions/mailsense/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	MessageHandler   *handlers.MessageHandler
	AnalyticsHandler *handlers.AnalyticsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/fetch-emails", cfg.MessageHandler.Fetch)

	r.Route("/emails", func(r chi.Router) {
		r.Get("/", cfg.MessageHandler.List)
		r.Post("/{id}/generate-response", cfg.MessageHandler.GenerateResponse)
		r.Post("/{id}/send", cfg.MessageHandler.Send)
	})

	r.Get("/analytics", cfg.AnalyticsHandler.Get)

	return r
}
