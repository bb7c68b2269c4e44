package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/modl-gg/panel-sub007/internal/app"
	jobmetrics "github.com/modl-gg/panel-sub007/internal/jobs"
	"github.com/modl-gg/panel-sub007/internal/migration"
	"github.com/modl-gg/panel-sub007/internal/platform/cache"
	"github.com/modl-gg/panel-sub007/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionStore := migration.NewRedisStore(redisClient, cfg.MigrationHistoryCap)
	cooldownStore := migration.NewRedisCooldown(redisClient, cfg.MigrationCooldown)

	// The worker never starts sessions, so it needs no enqueuer.
	migrationService := migration.NewService(sessionStore, cooldownStore, nil, logger, migration.ServiceConfig{
		HistoryCap: cfg.MigrationHistoryCap,
	})

	runner := &jobs.MigrationRunner{
		Service:  migrationService,
		Importer: jobs.NewBridgeImporter(cfg.MigrationBridgeURL),
		Logger:   logger,
		Metrics:  jobmetrics.NewMetrics(nil),
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Runner:    runner,
	})
	if err != nil {
		logger.Error("create worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("queue", jobs.QueueMigrations))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
