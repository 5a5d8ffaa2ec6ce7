// Package wire assembles the application from its components.
package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/review-broker/internal/app"
	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/db"
	"github.com/sevigo/review-broker/internal/github"
	"github.com/sevigo/review-broker/internal/jobs"
	"github.com/sevigo/review-broker/internal/llm"
	"github.com/sevigo/review-broker/internal/logger"
	"github.com/sevigo/review-broker/internal/queue"
	"github.com/sevigo/review-broker/internal/ratelimit"
	"github.com/sevigo/review-broker/internal/results"
	"github.com/sevigo/review-broker/internal/server"
	"github.com/sevigo/review-broker/internal/storage"
	"github.com/sevigo/review-broker/internal/webhook"
)

// BaseSet provides configuration, logging and the configured stores.
var BaseSet = wire.NewSet(
	config.LoadConfig,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
	provideDatabase,
	provideRedisClient,
	provideTaskStore,
	provideCacheStore,
	provideDeliveryStore,
	provideWorkQueue,
	provideJanitor,
	jobs.NewDispatcher,
	results.NewService,
)

// AppSet provides everything the server process runs.
var AppSet = wire.NewSet(
	BaseSet,
	app.NewApp,
	server.NewServer,
	server.NewRouter,
	webhook.NewReceiver,
	llm.NewPromptManager,
	provideGeneratorModel,
	provideAnalyzer,
	provideFetcherFactory,
	provideReviewJob,
	providePool,
	provideLimiters,
)

// ToolkitSet provides what the CLI needs.
var ToolkitSet = wire.NewSet(
	BaseSet,
	app.NewToolkit,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stderr":
		return os.Stderr
	case "file":
		f, err := os.OpenFile("review-broker.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	l := logger.NewLogger(loggerConfig, writer)
	slog.SetDefault(l)
	return l
}

// provideDatabase connects only when some store is backed by Postgres.
func provideDatabase(cfg *config.Config) (*db.DB, func(), error) {
	if !cfg.UsesPostgres() {
		return nil, func() {}, nil
	}
	return db.NewDatabase(&cfg.Database)
}

// provideRedisClient connects only when some component is backed by Redis.
func provideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.UsesRedis() {
		return nil, func() {}, nil
	}
	return storage.NewRedisClient(&cfg.Redis)
}

func provideTaskStore(cfg *config.Config, conn *db.DB) core.TaskStore {
	if cfg.Store.TaskBackend == config.BackendPostgres {
		return storage.NewPostgresTaskStore(conn.DB, cfg.Store.Timeout)
	}
	return storage.NewMemoryTaskStore()
}

func provideCacheStore(cfg *config.Config, conn *db.DB, client *redis.Client) core.CacheStore {
	switch cfg.Store.CacheBackend {
	case config.BackendPostgres:
		return storage.NewPostgresCacheStore(conn.DB, cfg.Store.Timeout)
	case config.BackendRedis:
		return storage.NewRedisCacheStore(client, cfg.Redis.KeyPrefix, cfg.Store.Timeout)
	default:
		return storage.NewMemoryCacheStore()
	}
}

func provideDeliveryStore(cfg *config.Config, conn *db.DB, client *redis.Client) core.DeliveryStore {
	switch cfg.Store.DeliveryBackend {
	case config.BackendPostgres:
		return storage.NewPostgresDeliveryStore(conn.DB, cfg.Store.Timeout)
	case config.BackendRedis:
		return storage.NewRedisDeliveryStore(client, cfg.Redis.KeyPrefix, cfg.Webhook.DeliveryRetention, cfg.Store.Timeout)
	default:
		return storage.NewMemoryDeliveryStore()
	}
}

func provideWorkQueue(cfg *config.Config, client *redis.Client) core.WorkQueue {
	if cfg.Worker.QueueBackend == config.BackendRedis {
		return queue.NewRedisQueue(client, cfg.Redis.KeyPrefix+":"+cfg.Worker.QueueKey, cfg.Worker.InstanceID, cfg.Worker.QueueCapacity)
	}
	return queue.NewMemoryQueue(cfg.Worker.QueueCapacity)
}

func provideLimiters(cfg *config.Config, client *redis.Client) server.Limiters {
	analyze := ratelimit.Bucket{Burst: cfg.RateLimit.AnalyzeBurst, Interval: cfg.RateLimit.AnalyzeInterval}
	hooks := ratelimit.Bucket{Burst: cfg.RateLimit.WebhookBurst, Interval: cfg.RateLimit.WebhookInterval}

	if cfg.RateLimit.Backend == config.BackendRedis {
		return server.Limiters{
			Analyze: ratelimit.NewRedisLimiter(client, cfg.Redis.KeyPrefix, "analyze", analyze),
			Webhook: ratelimit.NewRedisLimiter(client, cfg.Redis.KeyPrefix, "webhook", hooks),
		}
	}
	return server.Limiters{
		Analyze: ratelimit.NewMemoryLimiter(analyze, cfg.RateLimit.IdleTTL),
		Webhook: ratelimit.NewMemoryLimiter(hooks, cfg.RateLimit.IdleTTL),
	}
}

func provideGeneratorModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	model, err := llm.NewModel(ctx, &cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator model: %w", err)
	}
	return model, nil
}

func provideAnalyzer(cfg *config.Config, model llms.Model, prompts *llm.PromptManager, logger *slog.Logger) core.ReviewAnalyzer {
	return llm.NewAnalyzer(llm.ModelGenerator(model), prompts, llm.AnalyzerConfig{
		Provider:     llm.ModelProvider(cfg.AI.LLMProvider),
		Timeout:      cfg.AI.AnalysisTimeout,
		MaxDiffBytes: cfg.AI.MaxDiffBytes,
	}, logger)
}

func provideFetcherFactory(cfg *config.Config, logger *slog.Logger) (core.DiffFetcherFactory, error) {
	factory, err := github.NewFetcherFactory(&cfg.GitHub, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client factory: %w", err)
	}
	return factory, nil
}

func provideReviewJob(
	cfg *config.Config,
	tasks core.TaskStore,
	cache core.CacheStore,
	fetchers core.DiffFetcherFactory,
	analyzer core.ReviewAnalyzer,
	logger *slog.Logger,
) *jobs.ReviewJob {
	return jobs.NewReviewJob(tasks, cache, fetchers, analyzer, jobs.ReviewJobConfig{
		Retry: jobs.RetryPolicy{
			MaxAttempts:     cfg.Worker.RetryMaxAttempts,
			InitialInterval: cfg.Worker.RetryInitialInterval,
			MaxInterval:     cfg.Worker.RetryMaxInterval,
		},
	}, logger)
}

func providePool(cfg *config.Config, q core.WorkQueue, job *jobs.ReviewJob, logger *slog.Logger) *jobs.Pool {
	return jobs.NewPool(q, job, cfg.Worker.MaxWorkers, logger)
}

func provideJanitor(cfg *config.Config, deliveries core.DeliveryStore, logger *slog.Logger) *jobs.DeliveryJanitor {
	return jobs.NewDeliveryJanitor(deliveries, cfg.Webhook.DeliveryRetention, logger)
}
