package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iho/lotledger/internal/adapter/http/handler"
	"github.com/iho/lotledger/internal/adapter/http/middleware"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
	"github.com/iho/lotledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler         *handler.AccountHandler
	TransactionHandler     *handler.TransactionHandler
	PositionHandler        *handler.PositionHandler
	DisposalHandler        *handler.DisposalHandler
	CorporateActionHandler *handler.CorporateActionHandler
	ReportingHandler       *handler.ReportingHandler
	HealthHandler          *handler.HealthHandler
	IdempotencyStore       usecase.IdempotencyStore
	IdempotencyTTL         time.Duration
	Metrics                *metrics.Metrics
	RateLimiter            *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Post("/{id}/deactivate", cfg.AccountHandler.Deactivate)
			r.Get("/{id}/balance", cfg.AccountHandler.Balance)
			r.Get("/{id}/transactions", cfg.TransactionHandler.ListByAccount)
			r.Get("/{id}/positions", cfg.PositionHandler.ListByAccount)
			r.Get("/{id}/reports/realized-gains", cfg.ReportingHandler.RealizedGains)
			r.Get("/{id}/reports/wash-sales", cfg.ReportingHandler.WashSales)
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Post)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Post("/{id}/reverse", cfg.TransactionHandler.Reverse)
		})

		// Positions
		r.Route("/positions", func(r chi.Router) {
			r.Get("/{id}", cfg.PositionHandler.Get)
			r.Get("/{id}/summary", cfg.PositionHandler.Summary)
			r.Get("/{id}/lots", cfg.PositionHandler.Lots)
			r.Get("/{id}/history", cfg.ReportingHandler.LotHistory)
			r.Get("/{id}/check", cfg.ReportingHandler.CheckPosition)
		})

		// Disposals
		r.Post("/disposals", cfg.DisposalHandler.Execute)

		// Corporate actions
		r.Post("/corporate-actions", cfg.CorporateActionHandler.Apply)

		// Reconciliation
		r.Get("/reconciliation", cfg.ReportingHandler.Reconciliation)
	})

	return r
}
