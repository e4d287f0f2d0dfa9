package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"regwatch.co/sentinel/common/id"
	"regwatch.co/sentinel/common/logger"
	"regwatch.co/sentinel/core/config"
	"regwatch.co/sentinel/core/db"
	"regwatch.co/sentinel/internal/classifier"
	"regwatch.co/sentinel/internal/fetcher"
	"regwatch.co/sentinel/internal/monitor"
	"regwatch.co/sentinel/internal/queue"
	"regwatch.co/sentinel/internal/registry"
	"regwatch.co/sentinel/internal/store"
)

// scan runs one monitoring pass and writes the RunSummary as JSON to
// stdout. Intended for cron-style deployments that don't keep the
// server process around. Exits non-zero when any source failed so the
// scheduler's own alerting can pick it up.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeScan)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if err := id.Init(2); err != nil {
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

	reg, err := registry.Load(cfg.Monitor.SourcesFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load source registry", "error", err)
		os.Exit(1)
	}

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

	summary := mon.RunOnce(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		slog.ErrorContext(ctx, "failed to encode run summary", "error", err)
		os.Exit(1)
	}

	if len(summary.Errors()) > 0 {
		os.Exit(1)
	}
}
