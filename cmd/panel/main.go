package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/modl-gg/panel-sub007/internal/app"
	"github.com/modl-gg/panel-sub007/internal/auth"
	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/migration"
	"github.com/modl-gg/panel-sub007/internal/observability"
	"github.com/modl-gg/panel-sub007/internal/platform/cache"
	"github.com/modl-gg/panel-sub007/internal/platform/db"
	"github.com/modl-gg/panel-sub007/internal/roles"
	"github.com/modl-gg/panel-sub007/internal/staff"
	"github.com/modl-gg/panel-sub007/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()

	rolesRepo := roles.NewRepository(dbpool)
	hierarchyCache := authz.NewCache(rolesRepo, cfg.HierarchyTTL, logger)
	authzMW := authz.Middleware{Cache: hierarchyCache, Logger: logger, Denials: metrics.AuthzDenied}

	authRepo := auth.NewRepository(dbpool)
	authMW := auth.Middleware{Repo: authRepo, Logger: logger}

	rolesService := roles.NewService(rolesRepo, hierarchyCache)
	rolesHandler := roles.NewHandler(logger, rolesService, authzMW)

	staffRepo := staff.NewRepository(dbpool)
	staffService := staff.NewService(staffRepo, hierarchyCache)
	staffHandler := staff.NewHandler(logger, staffService, authzMW)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("create jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	sessionStore := migration.NewRedisStore(redisClient, cfg.MigrationHistoryCap)
	cooldownStore := migration.NewRedisCooldown(redisClient, cfg.MigrationCooldown)
	migrationService := migration.NewService(sessionStore, cooldownStore, jobsClient, logger, migration.ServiceConfig{
		HistoryCap: cfg.MigrationHistoryCap,
		OnTerminal: func(status migration.Status) { metrics.MigrationFinished(string(status)) },
	})
	uploadLimiter := migration.NewUploadLimiter(cfg.UploadRateWindow, cfg.UploadRateMax, logger)
	migrationHandler := migration.NewHandler(logger, migrationService, uploadLimiter, authzMW)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthMiddleware:   authMW,
		RolesHandler:     rolesHandler,
		StaffHandler:     staffHandler,
		MigrationHandler: migrationHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := uploadLimiter.Sweep(groupCtx, cfg.UploadRateSweep, metrics.RateLimitEntries)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}
