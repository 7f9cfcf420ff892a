package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/condoledger/condoledger/internal/accounts"
	"github.com/condoledger/condoledger/internal/app"
	"github.com/condoledger/condoledger/internal/audit"
	"github.com/condoledger/condoledger/internal/ledger"
	"github.com/condoledger/condoledger/internal/mappings"
	"github.com/condoledger/condoledger/internal/periods"
	"github.com/condoledger/condoledger/internal/platform/cache"
	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/posting"
	"github.com/condoledger/condoledger/jobs"
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
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	recorder := audit.NewRecorder(pool)

	accountsRepo := accounts.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, recorder)
	periodsRepo := periods.NewRepository(pool)
	periodsService := periods.NewService(periodsRepo, recorder)
	mappingsRepo := mappings.NewRepository(pool)
	mappingsService := mappings.NewService(mappingsRepo, recorder)

	postingRepo := posting.NewRepository(pool)
	postingCache := posting.NewCache(redisClient, cfg.ReportCacheTTL)
	postingService := posting.NewService(postingRepo, accountsRepo, periodsService, recorder, postingCache)
	integrator := posting.NewIntegrator(postingService, ledgerService, mappingsService)

	sweepJob := jobs.NewIntegrationSweepJob(integrator, ledgerRepo, logger)

	sweepTask, err := jobs.NewIntegrationSweepTask(0, cfg.SweepWindowDays)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIntegrationSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
