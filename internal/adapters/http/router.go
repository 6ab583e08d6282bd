package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/easytrade/upsell-orchestrator/internal/application"
)

// Handler is the HTTP adapter entrypoint for orchestrator use-cases.
// Keeping only the application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
	ready   func() error
}

// NewHandler constructs an HTTP handler bound to the application service.
// readyCheck is consulted by the readiness probe; nil means always ready.
func NewHandler(service *application.Service, readyCheck func() error) *Handler {
	return &Handler{service: service, ready: readyCheck}
}

// NewRouter registers the orchestrator HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhook/alerts", handler.ingestAlerts)
		r.Post("/webhook/usage", handler.ingestUsage)

		r.Post("/runs", handler.startRun)
		r.Get("/runs/{run_id}", handler.getRun)
		r.Post("/runs/{run_id}/reply", handler.submitReply)
		r.Post("/runs/{run_id}/cancel", handler.cancelRun)

		r.Get("/opportunities", handler.listOpportunities)
		r.Get("/opportunities/{run_id}", handler.getOpportunity)

		r.Post("/contracts", handler.createContract)
		r.Get("/contracts/{account_id}", handler.getContract)
		r.Get("/usage/{account_id}", handler.getUsage)

		r.Get("/admin/features", handler.listFeatures)
		r.Put("/admin/features/{name}", handler.setFeature)
	})

	return r
}
