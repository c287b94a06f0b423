package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/trigger/common/id"
	"basegraph.app/trigger/common/logger"
	"basegraph.app/trigger/common/otel"
	"basegraph.app/trigger/core/config"
	"basegraph.app/trigger/core/db"
	"basegraph.app/trigger/internal/gitlabclient"
	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/scheduler"
	"basegraph.app/trigger/internal/service"
	"basegraph.app/trigger/internal/store"
	"basegraph.app/trigger/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "trigger worker starting",
		"env", cfg.Env,
		"stream", cfg.Redis.StatusStream,
		"consumer_group", cfg.Redis.StatusGroup,
		"consumer_name", cfg.Redis.StatusConsumer)

	// Different node id than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected")

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Redis.StatusStream,
		Group:        cfg.Redis.StatusGroup,
		Consumer:     cfg.Redis.StatusConsumer,
		DLQStream:    cfg.Redis.StatusDLQStream,
		BatchSize:    10,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Build.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Queries())

	deps := service.RegistryDeps{Jobs: stores.Jobs()}
	if cfg.GitLab.Enabled() {
		client, err := gitlabclient.NewClient(gitlabclient.Config{
			HostURL:                 cfg.GitLab.HostURL,
			APIToken:                cfg.GitLab.APIToken,
			IgnoreCertificateErrors: cfg.GitLab.IgnoreCertificateErrors,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create gitlab client", "error", err)
			os.Exit(1)
		}
		deps.Notes = client
	} else {
		slog.WarnContext(ctx, "no gitlab host configured, merge request notes disabled")
	}

	// Policy edits go through the server, so reload them here.
	registry := service.NewRegistry(service.RegistryConfig{
		ServerName:   cfg.Build.ServerName,
		ReloadPolicy: true,
	}, deps)
	defer registry.Close()

	processor := worker.NewStatusProcessor(stores.Builds(), registry, scheduler.NewRedisPendingSet(redisClient))

	w := worker.New(consumer, processor.Process, worker.Config{
		MaxAttempts: cfg.Build.MaxAttempts,
	})

	reclaimer := worker.NewReclaimer(consumer, consumer, w.ProcessMessage, worker.ReclaimerConfig{
		MinIdle:       5 * time.Minute,
		Interval:      time.Minute,
		BatchSize:     10,
		MaxDeliveries: int64(cfg.Build.MaxAttempts) + 2,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}
