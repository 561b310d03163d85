package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/festa-erp/festa/internal/app"
	jobmetrics "github.com/festa-erp/festa/internal/jobs"
	"github.com/festa-erp/festa/internal/masterdata"
	"github.com/festa-erp/festa/internal/observability"
	"github.com/festa-erp/festa/internal/platform/db"
	"github.com/festa-erp/festa/internal/sales/quotes"
	"github.com/festa-erp/festa/internal/shared"
	"github.com/festa-erp/festa/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	quoteService := quotes.NewService(quotes.NewRepository(pool), masterdata.NewDirectory(pool), shared.NewAuditLogger(pool), observability.NewMetrics())
	expiryJob := jobs.NewQuoteExpiryJob(quoteService, logger, jobmetrics.NewMetrics(nil))

	// Cron ticks carry no as-of time so each run expires against its own clock.
	expiryTask, err := jobs.NewQuoteExpiryTask(time.Time{})
	if err != nil {
		logger.Error("build quote expiry task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuoteExpiry, Handler: expiryJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.QuoteExpiryCron, Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
