package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"regwatch.co/sentinel/common/id"
	"regwatch.co/sentinel/common/logger"
	"regwatch.co/sentinel/common/otel"
	"regwatch.co/sentinel/core/config"
	"regwatch.co/sentinel/core/db"
	"regwatch.co/sentinel/internal/classifier"
	"regwatch.co/sentinel/internal/fetcher"
	"regwatch.co/sentinel/internal/http/handler"
	"regwatch.co/sentinel/internal/http/middleware"
	httprouter "regwatch.co/sentinel/internal/http/router"
	"regwatch.co/sentinel/internal/monitor"
	"regwatch.co/sentinel/internal/queue"
	"regwatch.co/sentinel/internal/registry"
	"regwatch.co/sentinel/internal/scheduler"
	"regwatch.co/sentinel/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet; OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "sentinel starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
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

	if err := database.EnsureSchema(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to apply schema", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	reg, err := registry.Load(cfg.Monitor.SourcesFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load source registry", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "source registry loaded", "sources", reg.Len(), "file", cfg.Monitor.SourcesFile)

	cls, err := classifier.NewOpenAI(cfg.Classifier)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create classifier", "error", err)
		os.Exit(1)
	}

	var publisher queue.Publisher
	if cfg.Alerts.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Alerts.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		publisher = queue.NewRedisPublisher(redisClient, cfg.Alerts.Stream, nil)
		defer publisher.Close()
		slog.InfoContext(ctx, "alert stream enabled", "stream", cfg.Alerts.Stream)
	} else {
		slog.InfoContext(ctx, "alert stream disabled (no redis url configured)")
	}

	stores := store.NewStores(database)

	mon := monitor.New(monitor.Deps{
		Registry: reg,
		Fetcher: fetcher.NewHTTPFetcher(fetcher.Config{
			UserAgent: cfg.Fetch.UserAgent,
			MaxBytes:  cfg.Fetch.MaxBytes,
			Timeout:   cfg.Fetch.Timeout,
		}),
		Classifier: cls,
		Snapshots:  stores.Snapshots(),
		Alerts:     stores.Alerts(),
		Publisher:  publisher,
	}, monitor.Config{
		Concurrency:   cfg.Monitor.Concurrency,
		SourceTimeout: cfg.Monitor.SourceTimeout,
	})

	sched := scheduler.New(mon, cfg.Monitor.Interval)
	schedulerRunning := cfg.Monitor.Interval > 0
	if schedulerRunning {
		go func() {
			if err := sched.Run(ctx); err != nil && err != context.Canceled {
				slog.ErrorContext(ctx, "scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.InfoContext(ctx, "interval scheduler disabled; runs are triggered via the API")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, stores, reg, sched)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // a triggered run responds synchronously
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

	if schedulerRunning {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, stores *store.Stores, reg *registry.Registry, sched *scheduler.Scheduler) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	alertHandler := handler.NewAlertHandler(stores.Alerts(), reg)
	runHandler := handler.NewRunHandler(sched)

	httprouter.SetupRoutes(router, alertHandler, runHandler, httprouter.RouterConfig{
		AdminAPIKey: cfg.AdminAPIKey,
	})

	return router
}

const banner = `
███████╗███████╗███╗   ██╗████████╗██╗███╗   ██╗███████╗██╗
██╔════╝██╔════╝████╗  ██║╚══██╔══╝██║████╗  ██║██╔════╝██║
███████╗█████╗  ██╔██╗ ██║   ██║   ██║██╔██╗ ██║█████╗  ██║
╚════██║██╔══╝  ██║╚██╗██║   ██║   ██║██║╚██╗██║██╔══╝  ██║
███████║███████╗██║ ╚████║   ██║   ██║██║ ╚████║███████╗███████╗
╚══════╝╚══════╝╚═╝  ╚═══╝   ╚═╝   ╚═╝╚═╝  ╚═══╝╚══════╝╚══════╝
`
