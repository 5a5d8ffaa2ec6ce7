package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_WEBHOOK_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, BackendMemory, cfg.Store.TaskBackend)
	assert.Equal(t, BackendMemory, cfg.Worker.QueueBackend)
	assert.Equal(t, 5, cfg.Worker.MaxWorkers)
	assert.Equal(t, 3, cfg.Worker.RetryMaxAttempts)
	assert.NotEmpty(t, cfg.Worker.InstanceID)
	assert.Equal(t, 10, cfg.RateLimit.AnalyzeBurst)
	assert.Equal(t, time.Minute, cfg.RateLimit.AnalyzeInterval)
	assert.Equal(t, 72*time.Hour, cfg.Webhook.DeliveryRetention)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesRedis())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_WEBHOOK_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("QUEUE_BACKEND", "redis")
	t.Setenv("MAX_WORKERS", "12")
	t.Setenv("WORKER_INSTANCE_ID", "broker-2")
	t.Setenv("ANALYSIS_TIMEOUT", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Store.TaskBackend)
	assert.Equal(t, BackendRedis, cfg.Store.CacheBackend)
	assert.Equal(t, 12, cfg.Worker.MaxWorkers)
	assert.Equal(t, "broker-2", cfg.Worker.InstanceID)
	assert.Equal(t, 90*time.Second, cfg.AI.AnalysisTimeout)
	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.UsesRedis())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_WEBHOOK_SECRET", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "GITHUB_WEBHOOK_SECRET")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GitHub: GitHubConfig{WebhookSecret: "s"},
			AI:     AIConfig{LLMProvider: "ollama"},
			Worker: WorkerConfig{MaxWorkers: 1, QueueBackend: BackendMemory, QueueCapacity: 1, RetryMaxAttempts: 1},
			Store:  StoreConfig{TaskBackend: BackendMemory, CacheBackend: BackendMemory, DeliveryBackend: BackendMemory},
			RateLimit: RateLimitConfig{
				Backend:      BackendMemory,
				AnalyzeBurst: 1, AnalyzeInterval: time.Second,
				WebhookBurst: 1, WebhookInterval: time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Valid config", mutate: func(_ *Config) {}},
		{name: "Redis task store is not supported", mutate: func(c *Config) { c.Store.TaskBackend = BackendRedis }, wantErr: true},
		{name: "Unknown queue backend", mutate: func(c *Config) { c.Worker.QueueBackend = "kafka" }, wantErr: true},
		{name: "Zero workers", mutate: func(c *Config) { c.Worker.MaxWorkers = 0 }, wantErr: true},
		{name: "Gemini without key", mutate: func(c *Config) { c.AI.LLMProvider = "gemini" }, wantErr: true},
		{name: "Gemini with key", mutate: func(c *Config) { c.AI.LLMProvider = "gemini"; c.AI.GeminiAPIKey = "k" }},
		{name: "Zero rate interval", mutate: func(c *Config) { c.RateLimit.WebhookInterval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
