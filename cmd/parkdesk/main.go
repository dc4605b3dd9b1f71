package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/parkdesk/parkdesk/internal/app"
	"github.com/parkdesk/parkdesk/internal/invoices"
	"github.com/parkdesk/parkdesk/internal/observability"
	"github.com/parkdesk/parkdesk/internal/parks"
	"github.com/parkdesk/parkdesk/internal/permits"
	"github.com/parkdesk/parkdesk/internal/platform/cache"
	"github.com/parkdesk/parkdesk/internal/platform/db"
	"github.com/parkdesk/parkdesk/internal/reports"
	"github.com/parkdesk/parkdesk/internal/shared"
	"github.com/parkdesk/parkdesk/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(pool)

	parksRepo := parks.NewRepository(pool)
	parksCache := parks.NewCache(redisClient, cfg.CalendarCacheTTL)
	parksService := parks.NewService(parksRepo, parksCache)
	parksHandler := parks.NewHandler(logger, parksService)

	invoiceRepo := invoices.NewRepository(pool)
	permitsRepo := permits.NewRepository(pool)
	permitsService := permits.NewService(permitsRepo, invoiceRepo, parksService, idempotencyStore)
	permitsHandler := permits.NewHandler(logger, permitsService)

	invoicesService := invoices.NewService(invoiceRepo, permitsService, idempotencyStore)
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	reportsService := reports.NewService(permitsRepo, invoiceRepo, parksRepo)
	reportsHandler := reports.NewHandler(logger, reportsService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		PermitsHandler:  permitsHandler,
		InvoicesHandler: invoicesHandler,
		ParksHandler:    parksHandler,
		ReportsHandler:  reportsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
