package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/lotledger/internal/adapter/http"
	"github.com/iho/lotledger/internal/adapter/http/handler"
	"github.com/iho/lotledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/lotledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/lotledger/internal/adapter/repository/redis"
	"github.com/iho/lotledger/internal/infrastructure/config"
	"github.com/iho/lotledger/internal/infrastructure/eventpublisher"
	"github.com/iho/lotledger/internal/infrastructure/logger"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
	"github.com/iho/lotledger/internal/infrastructure/postgres"
	"github.com/iho/lotledger/internal/infrastructure/redis"
	"github.com/iho/lotledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = zl

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Sample pool stats into the connections gauge
	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-statsCtx.Done():
				return
			case <-ticker.C:
				m.DBConnections.Set(float64(pool.Stat().TotalConns()))
			}
		}
	}()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	positionRepo := postgresRepo.NewPositionRepository(pool)
	lotRepo := postgresRepo.NewLotRepository(pool)
	dispositionRepo := postgresRepo.NewDispositionRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	positionUC := usecase.NewPositionUseCase(positionRepo, lotRepo, auditRepo, outboxRepo, cache, idGen, m)
	accountUC := usecase.NewAccountUseCase(accountRepo, auditRepo, idGen, m)
	postingUC := usecase.NewPostingUseCase(txManager, accountRepo, transactionRepo, positionUC, auditRepo, outboxRepo, idGen, m)
	disposalUC := usecase.NewDisposalUseCase(
		txManager, accountRepo, transactionRepo, positionRepo, lotRepo, dispositionRepo,
		positionUC, auditRepo, outboxRepo, idGen, m,
		cfg.HoldingPeriodDays, cfg.WashSaleWindowDays,
	)
	actionUC := usecase.NewCorporateActionUseCase(
		txManager, positionRepo, lotRepo, dispositionRepo,
		positionUC, auditRepo, outboxRepo, idGen, m,
		cfg.HoldingPeriodDays,
	)
	reportingUC := usecase.NewReportingUseCase(accountRepo, positionRepo, lotRepo, dispositionRepo)
	reconciliationUC := usecase.NewReconciliationUseCase(accountRepo, positionRepo, lotRepo, dispositionRepo, ledgerRepo)

	// Outbox publisher drains pending events in the background
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(slog.Default()),
	})
	go func() {
		if err := publisher.Start(publisherCtx); err != nil && publisherCtx.Err() == nil {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:         handler.NewAccountHandler(accountUC),
		TransactionHandler:     handler.NewTransactionHandler(postingUC),
		PositionHandler:        handler.NewPositionHandler(positionUC),
		DisposalHandler:        handler.NewDisposalHandler(disposalUC),
		CorporateActionHandler: handler.NewCorporateActionHandler(actionUC),
		ReportingHandler:       handler.NewReportingHandler(reportingUC, reconciliationUC),
		HealthHandler:          handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:       idempotencyStore,
		IdempotencyTTL:         cfg.IdempotencyTTL,
		Metrics:                m,
		RateLimiter:            middleware.NewRateLimiter(100, 200, m),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopPublisher()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
