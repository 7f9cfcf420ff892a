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

	"github.com/condoledger/condoledger/internal/accounts"
	"github.com/condoledger/condoledger/internal/app"
	"github.com/condoledger/condoledger/internal/audit"
	"github.com/condoledger/condoledger/internal/ledger"
	"github.com/condoledger/condoledger/internal/mappings"
	"github.com/condoledger/condoledger/internal/periods"
	"github.com/condoledger/condoledger/internal/platform/cache"
	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/posting"
	"github.com/condoledger/condoledger/internal/reconciliation"
	"github.com/condoledger/condoledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	recorder := audit.NewRecorder(dbpool)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, recorder)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, recorder)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	periodsRepo := periods.NewRepository(dbpool)
	periodsService := periods.NewService(periodsRepo, recorder)
	periodsHandler := periods.NewHandler(logger, periodsService)

	mappingsRepo := mappings.NewRepository(dbpool)
	mappingsService := mappings.NewService(mappingsRepo, recorder)
	mappingsHandler := mappings.NewHandler(logger, mappingsService)

	postingRepo := posting.NewRepository(dbpool)
	postingCache := posting.NewCache(redisClient, cfg.ReportCacheTTL)
	postingService := posting.NewService(postingRepo, accountsRepo, periodsService, recorder, postingCache)
	integrator := posting.NewIntegrator(postingService, ledgerService, mappingsService)
	postingHandler := posting.NewHandler(logger, postingService, integrator)

	periodsService.SetCloseHook(func(ctx context.Context, orgID int64, start, end time.Time) error {
		_, err := postingService.ClosePostingsForWindow(ctx, orgID, start, end)
		return err
	})

	reconciliationService := reconciliation.NewService(ledgerService, recorder)
	reconciliationHandler := reconciliation.NewHandler(logger, reconciliationService)

	auditService := audit.NewService(dbpool)
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		AccountsHandler:       accountsHandler,
		LedgerHandler:         ledgerHandler,
		PeriodsHandler:        periodsHandler,
		MappingsHandler:       mappingsHandler,
		PostingHandler:        postingHandler,
		ReconciliationHandler: reconciliationHandler,
		AuditHandler:          auditHandler,
		JobHandler:            jobHandler,
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
