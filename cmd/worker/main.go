package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/parkdesk/parkdesk/internal/app"
	"github.com/parkdesk/parkdesk/internal/invoices"
	"github.com/parkdesk/parkdesk/internal/parks"
	"github.com/parkdesk/parkdesk/internal/permits"
	"github.com/parkdesk/parkdesk/internal/platform/cache"
	"github.com/parkdesk/parkdesk/internal/platform/db"
	"github.com/parkdesk/parkdesk/internal/shared"
	"github.com/parkdesk/parkdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

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

	parksRepo := parks.NewRepository(pool)
	parksCache := parks.NewCache(redisClient, cfg.CalendarCacheTTL)
	parksService := parks.NewService(parksRepo, parksCache)

	invoiceRepo := invoices.NewRepository(pool)
	permitsRepo := permits.NewRepository(pool)

	mailClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	reminderJob := jobs.NewPaymentReminderJob(invoiceRepo, permitsRepo, mailClient, logger, nil, cfg.OfficeInbox)
	warmupJob := jobs.NewCalendarWarmupJob(parksService, logger, nil)
	mailJob := jobs.NewSendEmailJob(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, logger)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, nil)

	reminderTask, err := jobs.NewPaymentReminderTask(jobs.PaymentReminderPayload{
		GraceHours: int(cfg.ReminderGracePeriod.Hours()),
	})
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewCalendarWarmupTask(jobs.CalendarWarmupPayload{
		HorizonDays: cfg.CalendarWarmupDays,
	})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.IdempotencyCleanupPayload{})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPaymentReminder, Handler: reminderJob.Handle},
			{Type: jobs.TaskCalendarWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 7 * * *", Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 5 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * 0", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
