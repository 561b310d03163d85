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

	"github.com/festa-erp/festa/internal/app"
	"github.com/festa-erp/festa/internal/finance"
	"github.com/festa-erp/festa/internal/masterdata"
	"github.com/festa-erp/festa/internal/masterdata/categories"
	"github.com/festa-erp/festa/internal/observability"
	"github.com/festa-erp/festa/internal/platform/cache"
	"github.com/festa-erp/festa/internal/platform/db"
	"github.com/festa-erp/festa/internal/sales/contracts"
	"github.com/festa-erp/festa/internal/sales/quotes"
	"github.com/festa-erp/festa/internal/shared"
	"github.com/festa-erp/festa/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{
		MaxConns:        cfg.PGMaxConns,
		MaxConnLifetime: cfg.PGMaxConnLifetime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	directory := masterdata.NewDirectory(dbpool)

	quoteService := quotes.NewService(quotes.NewRepository(dbpool), directory, auditLogger, metrics)
	contractService := contracts.NewService(contracts.NewRepository(dbpool), quoteService, directory, auditLogger, metrics)
	financeService := finance.NewService(finance.NewRepository(dbpool), contractService, directory, idempotencyStore, auditLogger, metrics)
	categoryService := categories.NewService(categories.NewRepository(dbpool), auditLogger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()
	jobClient := jobs.NewClient(redisOpts)
	defer jobClient.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		QuotesHandler:     quotes.NewHandler(logger, quoteService),
		ContractsHandler:  contracts.NewHandler(logger, contractService),
		FinanceHandler:    finance.NewHandler(logger, financeService),
		CategoriesHandler: categories.NewHandler(logger, categoryService),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
		Metrics:           metrics,
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
