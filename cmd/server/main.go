package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/trigger/common/id"
	"basegraph.app/trigger/common/logger"
	"basegraph.app/trigger/common/otel"
	"basegraph.app/trigger/core/config"
	"basegraph.app/trigger/core/db"
	"basegraph.app/trigger/internal/gitlabclient"
	"basegraph.app/trigger/internal/http/middleware"
	httprouter "basegraph.app/trigger/internal/http/router"
	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/scheduler"
	"basegraph.app/trigger/internal/service"
	"basegraph.app/trigger/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "trigger server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.BuildStream)

	buildProducer := queue.NewRedisProducer(redisClient, cfg.Redis.BuildStream, nil)
	defer buildProducer.Close()

	stores := store.NewStores(database.Queries())

	sched := scheduler.New(
		scheduler.NewRedisPendingSet(redisClient),
		stores.Builds(),
		buildProducer,
		scheduler.Config{PendingTTL: cfg.Build.PendingTTL},
	)

	deps := service.RegistryDeps{
		Jobs:      stores.Jobs(),
		Scheduler: sched,
	}
	var branches service.BranchLister
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
		deps.Resolver = client
		deps.Notes = client
		deps.OpenMergeRequests = client
		branches = client
		slog.InfoContext(ctx, "gitlab client configured", "host", cfg.GitLab.HostURL)
	} else {
		slog.WarnContext(ctx, "no gitlab host configured, source project lookups and merge request notes disabled")
	}

	registry := service.NewRegistry(service.RegistryConfig{
		QuietPeriod:   cfg.Build.QuietPeriod,
		ServerName:    cfg.Build.ServerName,
		LookupTimeout: cfg.GitLab.LookupTimeout,
	}, deps)

	jobs := service.NewJobService(stores.Jobs(), registry, branches, nil, cfg.Build.RootURL)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, registry, jobs)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Lets in-flight evaluations reach the scheduler before redis closes.
	registry.Close()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, registry *service.Registry, jobs service.JobService) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, registry, jobs, httprouter.RouterConfig{
		WebhookToken: cfg.Build.WebhookToken,
	})

	return router
}
