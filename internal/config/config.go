// Package config loads the service configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/review-broker/internal/logger"
)

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the application's configuration values.
type Config struct {
	Server    ServerConfig
	Logging   logger.Config
	Database  DBConfig
	Redis     RedisConfig
	GitHub    GitHubConfig
	AI        AIConfig
	Worker    WorkerConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key the service writes.
	KeyPrefix string
}

type GitHubConfig struct {
	Token          string
	AppID          int64
	PrivateKeyPath string
	WebhookSecret  string
	// APIURL overrides the API endpoint for GitHub Enterprise.
	APIURL string
}

type AIConfig struct {
	LLMProvider     string
	GeneratorModel  string
	OllamaHost      string
	GeminiAPIKey    string
	AnalysisTimeout time.Duration
	// MaxDiffBytes caps the diff handed to the model.
	MaxDiffBytes int
}

type WorkerConfig struct {
	MaxWorkers           int
	QueueBackend         string
	QueueCapacity        int
	QueueKey             string
	InstanceID           string
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

type StoreConfig struct {
	TaskBackend     string
	CacheBackend    string
	DeliveryBackend string
	Timeout         time.Duration
}

// RateLimitConfig sizes the token buckets guarding the write endpoints.
// Each bucket holds Burst tokens and refills completely every Interval.
type RateLimitConfig struct {
	Backend         string
	AnalyzeBurst    int
	AnalyzeInterval time.Duration
	WebhookBurst    int
	WebhookInterval time.Duration
	IdleTTL         time.Duration
}

type WebhookConfig struct {
	DeliveryRetention time.Duration
	PurgeSchedule     string
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	MetricsPath  string
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			RequestTimeout: viper.GetDuration("SERVER_REQUEST_TIMEOUT"),
		},
		Logging: logger.Config{
			Level:  strings.ToLower(viper.GetString("LOG_LEVEL")),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Addr:      viper.GetString("REDIS_ADDR"),
			Password:  viper.GetString("REDIS_PASSWORD"),
			DB:        viper.GetInt("REDIS_DB"),
			KeyPrefix: viper.GetString("REDIS_KEY_PREFIX"),
		},
		GitHub: GitHubConfig{
			Token:          viper.GetString("GITHUB_TOKEN"),
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
			WebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
			APIURL:         viper.GetString("GITHUB_API_URL"),
		},
		AI: AIConfig{
			LLMProvider:     strings.ToLower(viper.GetString("LLM_PROVIDER")),
			GeneratorModel:  viper.GetString("GENERATOR_MODEL_NAME"),
			OllamaHost:      viper.GetString("OLLAMA_HOST"),
			GeminiAPIKey:    viper.GetString("GEMINI_API_KEY"),
			AnalysisTimeout: viper.GetDuration("ANALYSIS_TIMEOUT"),
			MaxDiffBytes:    viper.GetInt("MAX_DIFF_BYTES"),
		},
		Worker: WorkerConfig{
			MaxWorkers:           viper.GetInt("MAX_WORKERS"),
			QueueBackend:         strings.ToLower(viper.GetString("QUEUE_BACKEND")),
			QueueCapacity:        viper.GetInt("QUEUE_CAPACITY"),
			QueueKey:             viper.GetString("QUEUE_KEY"),
			InstanceID:           viper.GetString("WORKER_INSTANCE_ID"),
			RetryMaxAttempts:     viper.GetInt("RETRY_MAX_ATTEMPTS"),
			RetryInitialInterval: viper.GetDuration("RETRY_INITIAL_INTERVAL"),
			RetryMaxInterval:     viper.GetDuration("RETRY_MAX_INTERVAL"),
		},
		Store: StoreConfig{
			TaskBackend:     strings.ToLower(viper.GetString("STORE_BACKEND")),
			CacheBackend:    strings.ToLower(viper.GetString("CACHE_BACKEND")),
			DeliveryBackend: strings.ToLower(viper.GetString("DELIVERY_BACKEND")),
			Timeout:         viper.GetDuration("STORE_TIMEOUT"),
		},
		RateLimit: RateLimitConfig{
			Backend:         strings.ToLower(viper.GetString("RATE_LIMIT_BACKEND")),
			AnalyzeBurst:    viper.GetInt("ANALYZE_RATE_LIMIT"),
			AnalyzeInterval: viper.GetDuration("ANALYZE_RATE_INTERVAL"),
			WebhookBurst:    viper.GetInt("WEBHOOK_RATE_LIMIT"),
			WebhookInterval: viper.GetDuration("WEBHOOK_RATE_INTERVAL"),
			IdleTTL:         viper.GetDuration("RATE_LIMIT_IDLE_TTL"),
		},
		Webhook: WebhookConfig{
			DeliveryRetention: viper.GetDuration("WEBHOOK_DELIVERY_RETENTION"),
			PurgeSchedule:     viper.GetString("WEBHOOK_PURGE_SCHEDULE"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  viper.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint: viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			MetricsPath:  viper.GetString("METRICS_PATH"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", 60*time.Second)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_OUTPUT", "stdout")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "review")
	viper.SetDefault("DB_NAME", "reviewdb")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 20)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_KEY_PREFIX", "review")

	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/review-broker.private-key.pem")

	viper.SetDefault("LLM_PROVIDER", "ollama")
	viper.SetDefault("GENERATOR_MODEL_NAME", "llama3")
	viper.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	viper.SetDefault("ANALYSIS_TIMEOUT", 5*time.Minute)
	viper.SetDefault("MAX_DIFF_BYTES", 200_000)

	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("QUEUE_BACKEND", BackendMemory)
	viper.SetDefault("QUEUE_CAPACITY", 100)
	viper.SetDefault("QUEUE_KEY", "tasks")
	viper.SetDefault("WORKER_INSTANCE_ID", defaultInstanceID())
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_INITIAL_INTERVAL", time.Second)
	viper.SetDefault("RETRY_MAX_INTERVAL", 30*time.Second)

	viper.SetDefault("STORE_BACKEND", BackendMemory)
	viper.SetDefault("CACHE_BACKEND", BackendMemory)
	viper.SetDefault("DELIVERY_BACKEND", BackendMemory)
	viper.SetDefault("STORE_TIMEOUT", 5*time.Second)

	viper.SetDefault("RATE_LIMIT_BACKEND", BackendMemory)
	viper.SetDefault("ANALYZE_RATE_LIMIT", 10)
	viper.SetDefault("ANALYZE_RATE_INTERVAL", time.Minute)
	viper.SetDefault("WEBHOOK_RATE_LIMIT", 30)
	viper.SetDefault("WEBHOOK_RATE_INTERVAL", time.Minute)
	viper.SetDefault("RATE_LIMIT_IDLE_TTL", 10*time.Minute)

	viper.SetDefault("WEBHOOK_DELIVERY_RETENTION", 72*time.Hour)
	viper.SetDefault("WEBHOOK_PURGE_SCHEDULE", "@every 10m")

	viper.SetDefault("OTEL_SERVICE_NAME", "review-broker")
	viper.SetDefault("METRICS_PATH", "/metrics")
}

// Validate checks that the selected backends are known and that the values
// each of them needs are present.
func (c *Config) Validate() error {
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if c.Worker.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.Worker.MaxWorkers)
	}
	if c.Worker.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive, got %d", c.Worker.QueueCapacity)
	}
	if c.Worker.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.Worker.RetryMaxAttempts)
	}

	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"STORE_BACKEND", c.Store.TaskBackend, []string{BackendMemory, BackendPostgres}},
		{"CACHE_BACKEND", c.Store.CacheBackend, []string{BackendMemory, BackendPostgres, BackendRedis}},
		{"DELIVERY_BACKEND", c.Store.DeliveryBackend, []string{BackendMemory, BackendPostgres, BackendRedis}},
		{"QUEUE_BACKEND", c.Worker.QueueBackend, []string{BackendMemory, BackendRedis}},
		{"RATE_LIMIT_BACKEND", c.RateLimit.Backend, []string{BackendMemory, BackendRedis}},
		{"LLM_PROVIDER", c.AI.LLMProvider, []string{"ollama", "gemini"}},
	}
	for _, chk := range checks {
		if !slices.Contains(chk.allowed, chk.value) {
			return fmt.Errorf("%s must be one of %v, got %q", chk.name, chk.allowed, chk.value)
		}
	}

	if c.AI.LLMProvider == "gemini" && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY must be set for the gemini provider")
	}
	if c.RateLimit.AnalyzeBurst <= 0 || c.RateLimit.WebhookBurst <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.RateLimit.AnalyzeInterval <= 0 || c.RateLimit.WebhookInterval <= 0 {
		return fmt.Errorf("rate limit intervals must be positive")
	}
	return nil
}

// UsesPostgres reports whether any store is backed by Postgres.
func (c *Config) UsesPostgres() bool {
	return c.Store.TaskBackend == BackendPostgres ||
		c.Store.CacheBackend == BackendPostgres ||
		c.Store.DeliveryBackend == BackendPostgres
}

// UsesRedis reports whether any component is backed by Redis.
func (c *Config) UsesRedis() bool {
	return c.Store.CacheBackend == BackendRedis ||
		c.Store.DeliveryBackend == BackendRedis ||
		c.Worker.QueueBackend == BackendRedis ||
		c.RateLimit.Backend == BackendRedis
}

// defaultInstanceID is the host name, which is stable across restarts of the
// same container or machine.
func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "default"
	}
	return host
}
