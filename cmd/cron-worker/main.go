package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/partnerledger/backend/internal/batches"
	"github.com/partnerledger/backend/internal/cron"
	"github.com/partnerledger/backend/internal/notifications"
	"github.com/partnerledger/backend/internal/orders"
	"github.com/partnerledger/backend/internal/partners"
	"github.com/partnerledger/backend/internal/settlements"
	"github.com/partnerledger/backend/pkg/config"
	"github.com/partnerledger/backend/pkg/db"
	"github.com/partnerledger/backend/pkg/logger"
	"github.com/partnerledger/backend/pkg/metrics"
	"github.com/partnerledger/backend/pkg/migrate"
	"github.com/partnerledger/backend/pkg/outbox"
	"github.com/partnerledger/backend/pkg/redis"
)

const lockKeyFormat = "pl:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	partnersRepo := partners.NewRepository(dbClient.DB())
	batchesRepo := batches.NewRepository(dbClient.DB())
	settlementsRepo := settlements.NewRepository(dbClient.DB())

	settlementsService, err := settlements.NewService(settlementsRepo, ordersRepo, dbClient, outboxService, pipelineMetrics, cfg.Settlement)
	if err != nil {
		logg.Error(context.Background(), "failed to build settlements service", err)
		os.Exit(1)
	}
	batchesService, err := batches.NewService(batchesRepo, partnersRepo, dbClient, outboxService, pipelineMetrics, cfg.Settlement)
	if err != nil {
		logg.Error(context.Background(), "failed to build batches service", err)
		os.Exit(1)
	}

	settlementRunJob, err := cron.NewSettlementRunJob(cron.SettlementRunJobParams{
		Logger:      logg,
		Settlements: settlementsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build settlement run job", err)
		os.Exit(1)
	}
	batchRefreshJob, err := cron.NewBatchRefreshJob(cron.BatchRefreshJobParams{
		Logger:     logg,
		Repository: batchesRepo,
		Batches:    batchesService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build batch refresh job", err)
		os.Exit(1)
	}
	notificationCleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build notification cleanup job", err)
		os.Exit(1)
	}
	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		Repository:  outboxRepo,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build outbox retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		settlementRunJob,
		batchRefreshJob,
		notificationCleanupJob,
		outboxRetentionJob,
	)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
