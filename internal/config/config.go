package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderMaxModifyBatchSize is the hard ceiling the mail provider accepts for
// label modification batches. Configured sizes above it are clamped.
const ProviderMaxModifyBatchSize = 100

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gmail     GmailConfig     `yaml:"gmail"`
	Batch     BatchConfig     `yaml:"batch"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// ReadTimeout returns the configured read timeout as a duration
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the configured write timeout as a duration.
// Bulk operations block for the whole run, so this bounds request latency.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// GmailConfig holds Gmail API client configuration
type GmailConfig struct {
	// Endpoint overrides the API base URL (tests, proxies). Empty uses the SDK default.
	Endpoint       string `yaml:"endpoint"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call HTTP timeout as a duration
func (c GmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BatchConfig holds the tuning knobs of the batch operation engine
type BatchConfig struct {
	MaxBatchSize                  int     `yaml:"max_batch_size"`
	DelayBetweenBatchesMs         int     `yaml:"delay_between_batches_ms"`
	MaxRetryAttempts              int     `yaml:"max_retry_attempts"`
	InitialBackoffMs              int     `yaml:"initial_backoff_ms"`
	BackoffMultiplier             float64 `yaml:"backoff_multiplier"`
	MaxBackoffMs                  int     `yaml:"max_backoff_ms"`
	MicroDelayBetweenOperationsMs int     `yaml:"micro_delay_between_operations_ms"`
	CircuitBreakerThreshold       int     `yaml:"circuit_breaker_threshold"`
	CircuitBreakerCooldownMs      int     `yaml:"circuit_breaker_cooldown_ms"`
	CircuitBreakerMaxCooldownMs   int     `yaml:"circuit_breaker_max_cooldown_ms"`
	FailOnPartialFailure          bool    `yaml:"fail_on_partial_failure"`
	LockTTLSeconds                int     `yaml:"lock_ttl_seconds"`
}

// EffectiveMaxBatchSize returns the adaptive ceiling clamped to the provider cap.
func (c BatchConfig) EffectiveMaxBatchSize() int {
	if c.MaxBatchSize <= 0 {
		return DefaultBatchConfig().MaxBatchSize
	}
	if c.MaxBatchSize > ProviderMaxModifyBatchSize {
		return ProviderMaxModifyBatchSize
	}
	return c.MaxBatchSize
}

// DelayBetweenBatches returns the inter-chunk delay as a duration
func (c BatchConfig) DelayBetweenBatches() time.Duration {
	return time.Duration(c.DelayBetweenBatchesMs) * time.Millisecond
}

// InitialBackoff returns the first retry delay as a duration
func (c BatchConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMs) * time.Millisecond
}

// MaxBackoff returns the retry delay ceiling as a duration
func (c BatchConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}

// MicroDelayBetweenOperations returns the per-item pacing delay as a duration
func (c BatchConfig) MicroDelayBetweenOperations() time.Duration {
	return time.Duration(c.MicroDelayBetweenOperationsMs) * time.Millisecond
}

// CircuitBreakerCooldown returns the per-failure cooling-off step as a duration
func (c BatchConfig) CircuitBreakerCooldown() time.Duration {
	return time.Duration(c.CircuitBreakerCooldownMs) * time.Millisecond
}

// CircuitBreakerMaxCooldown returns the cooling-off cap as a duration
func (c BatchConfig) CircuitBreakerMaxCooldown() time.Duration {
	return time.Duration(c.CircuitBreakerMaxCooldownMs) * time.Millisecond
}

// LockTTL returns the per-user operation lock TTL as a duration
func (c BatchConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// DefaultBatchConfig returns the engine defaults used for zero-valued fields.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchSize:                  50,
		DelayBetweenBatchesMs:         100,
		MaxRetryAttempts:              3,
		InitialBackoffMs:              1000,
		BackoffMultiplier:             2.0,
		MaxBackoffMs:                  30000,
		MicroDelayBetweenOperationsMs: 10,
		CircuitBreakerThreshold:       3,
		CircuitBreakerCooldownMs:      1000,
		CircuitBreakerMaxCooldownMs:   5000,
		LockTTLSeconds:                300,
	}
}

// WithDefaults fills zero-valued fields from DefaultBatchConfig.
// DelayBetweenBatchesMs and MicroDelayBetweenOperationsMs may legitimately be
// zero, so only negative values are replaced for those.
func (c BatchConfig) WithDefaults() BatchConfig {
	d := DefaultBatchConfig()
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.DelayBetweenBatchesMs < 0 {
		c.DelayBetweenBatchesMs = d.DelayBetweenBatchesMs
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = d.MaxRetryAttempts
	}
	if c.InitialBackoffMs <= 0 {
		c.InitialBackoffMs = d.InitialBackoffMs
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	if c.MaxBackoffMs <= 0 {
		c.MaxBackoffMs = d.MaxBackoffMs
	}
	if c.MicroDelayBetweenOperationsMs < 0 {
		c.MicroDelayBetweenOperationsMs = d.MicroDelayBetweenOperationsMs
	}
	if c.CircuitBreakerThreshold <= 0 {
		c.CircuitBreakerThreshold = d.CircuitBreakerThreshold
	}
	if c.CircuitBreakerCooldownMs <= 0 {
		c.CircuitBreakerCooldownMs = d.CircuitBreakerCooldownMs
	}
	if c.CircuitBreakerMaxCooldownMs <= 0 {
		c.CircuitBreakerMaxCooldownMs = d.CircuitBreakerMaxCooldownMs
	}
	if c.LockTTLSeconds <= 0 {
		c.LockTTLSeconds = d.LockTTLSeconds
	}
	return c
}

// RedisConfig holds Redis connection configuration.
// Redis is optional: without a URL, per-user operation locking is disabled.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Enabled reports whether a Redis URL is configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level     string `yaml:"level"` // debug, info, warn, error
	Human     bool   `yaml:"human"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedactPII reports whether PII redaction is on (default true)
func (c LoggingConfig) ShouldRedactPII() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// TelemetryConfig holds OpenTelemetry metrics configuration
type TelemetryConfig struct {
	Enabled               bool   `yaml:"enabled"`
	ServiceName           string `yaml:"service_name"`
	ExportIntervalSeconds int    `yaml:"export_interval_seconds"`
	// OTLPEndpoint is a host:port receiving OTLP/HTTP metrics. Empty means
	// metrics go to stdout only.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Stdout       bool   `yaml:"stdout"`
}

// ExportInterval returns the periodic metric export interval as a duration
func (c TelemetryConfig) ExportInterval() time.Duration {
	return time.Duration(c.ExportIntervalSeconds) * time.Second
}

// Load reads and parses the configuration file. An empty path yields the
// defaults, which lets the CLI run without a config file.
func Load(path string) (*Config, error) {
	// Batch defaults are pre-populated so an explicit zero delay in the file survives.
	cfg := Config{Batch: DefaultBatchConfig()}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 600
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Gmail.TimeoutSeconds == 0 {
		cfg.Gmail.TimeoutSeconds = 30
	}
	if cfg.Gmail.UserAgent == "" {
		cfg.Gmail.UserAgent = "mailbox-bulkops/1.0"
	}
	cfg.Batch = cfg.Batch.WithDefaults()
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "bulkops"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "mailbox-bulkops"
	}
	if cfg.Telemetry.ExportIntervalSeconds == 0 {
		cfg.Telemetry.ExportIntervalSeconds = 60
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in containers.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := envInt("SERVER_PORT"); v > 0 {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("GMAIL_ENDPOINT"); v != "" {
		cfg.Gmail.Endpoint = v
	}
	if v := envInt("BATCH_MAX_BATCH_SIZE"); v > 0 {
		cfg.Batch.MaxBatchSize = v
	}
	if v, ok := os.LookupEnv("BATCH_DELAY_BETWEEN_BATCHES_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Batch.DelayBetweenBatchesMs = n
		}
	}
	if v := envInt("BATCH_MAX_RETRY_ATTEMPTS"); v > 0 {
		cfg.Batch.MaxRetryAttempts = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = v == "true"
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}

	return cfg, nil
}

// envInt returns the integer value of an env var, or 0 when unset or invalid.
func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
