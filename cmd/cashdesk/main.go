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

	"github.com/cashdesk-erp/cashdesk/internal/app"
	"github.com/cashdesk-erp/cashdesk/internal/ledger"
	ledgerhttp "github.com/cashdesk-erp/cashdesk/internal/ledger/http"
	"github.com/cashdesk-erp/cashdesk/internal/observability"
	"github.com/cashdesk-erp/cashdesk/internal/platform/cache"
	"github.com/cashdesk-erp/cashdesk/internal/platform/db"
	"github.com/cashdesk-erp/cashdesk/internal/refdata"
	"github.com/cashdesk-erp/cashdesk/internal/shared"
	"github.com/cashdesk-erp/cashdesk/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The queue is optional; the API keeps serving without it.
	var jobsClient *jobs.Client
	if redisClient, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, job enqueue disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		jobsClient, err = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("jobs client init failed", slog.Any("error", err))
		} else {
			defer func() {
				if err := jobsClient.Close(); err != nil {
					logger.Warn("jobs client close", slog.Any("error", err))
				}
			}()
		}
	}

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	refdataRepo := refdata.NewRepository(pool)
	refdataService := refdata.NewService(refdataRepo)
	refdataHandler := refdata.NewHandler(logger, refdataService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, refdataService, auditLogger, metrics, cfg.DocNumberPrefix)
	calculator := ledger.NewCalculator(ledgerRepo, logger)
	reporter := ledger.NewReporter(ledgerRepo)
	ledgerHandler := ledgerhttp.NewHandler(logger, ledgerService, calculator, reporter)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		LedgerHandler:  ledgerHandler,
		RefDataHandler: refdataHandler,
		JobsClient:     jobsClient,
		Pool:           pool,
		Metrics:        metrics,
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
