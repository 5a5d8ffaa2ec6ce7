package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/ratelimit"
	"github.com/sevigo/review-broker/internal/results"
	"github.com/sevigo/review-broker/internal/server/handler"
	"github.com/sevigo/review-broker/internal/webhook"
)

// Limiters holds the admission budgets of the write endpoints.
type Limiters struct {
	Analyze ratelimit.Limiter
	Webhook ratelimit.Limiter
}

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(
	cfg *config.Config,
	dispatcher core.JobDispatcher,
	receiver *webhook.Receiver,
	resultsSvc *results.Service,
	limiters Limiters,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Get("/health", handler.Health)
	r.Method(http.MethodGet, cfg.Telemetry.MetricsPath, promhttp.Handler())

	analyzeHandler := handler.NewAnalyzeHandler(dispatcher, logger)
	r.With(ratelimit.Middleware(limiters.Analyze, "analyze", logger)).
		Post("/analyze-pr", analyzeHandler.Handle)

	webhookHandler := handler.NewWebhookHandler(cfg.GitHub.WebhookSecret, receiver, logger)
	r.With(ratelimit.Middleware(limiters.Webhook, "webhook", logger)).
		Post("/webhook/github", webhookHandler.Handle)

	tasksHandler := handler.NewTasksHandler(resultsSvc, logger)
	r.Get("/status/{task_id}", tasksHandler.Status)
	r.Get("/results/{task_id}", tasksHandler.Result)

	return otelhttp.NewHandler(r, "review-broker",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}
