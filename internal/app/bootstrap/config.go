package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config is the resolved runtime configuration. Values come from defaults,
// then configs/default.yaml, then the environment.
type Config struct {
	ServiceID   string
	Environment string
	LogLevel    string

	HTTPPort int
	GRPCPort int

	PublicBaseURL string
	CORSOrigins   []string

	StorageDriver string
	DatabaseURL   string
	MaxDBConns    int32
	RedisURL      string

	JWTSecret string
	JWTIssuer string

	KafkaBrokers       []string
	KafkaConsumerGroup string
	KafkaInputTopics   []string
	KafkaTopicPrefix   string

	TracingEnabled  bool
	TracingEndpoint string

	LinkCacheTTL         time.Duration
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration
}

type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		LogLevel    string `yaml:"log_level"`
		HTTPPort    int    `yaml:"http_port"`
		GRPCPort    int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Affiliate struct {
		PublicBaseURL string   `yaml:"public_base_url"`
		CORSOrigins   []string `yaml:"cors_origins"`
	} `yaml:"affiliate"`
	Dependencies struct {
		StorageDriver string `yaml:"storage_driver"`
		PostgresURL   string `yaml:"postgres_url"`
		MaxDBConns    int    `yaml:"max_db_conns"`
		RedisURL      string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Auth struct {
		JWTIssuer string `yaml:"jwt_issuer"`
	} `yaml:"auth"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		ConsumerGroup string   `yaml:"consumer_group"`
		InputTopics   []string `yaml:"input_topics"`
		TopicPrefix   string   `yaml:"topic_prefix"`
	} `yaml:"kafka"`
	Tracing struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"tracing"`
	Runtime struct {
		LinkCacheTTL        string `yaml:"link_cache_ttl"`
		IdempotencyTTLHours int    `yaml:"idempotency_ttl_hours"`
		EventDedupTTLHours  int    `yaml:"event_dedup_ttl_hours"`
		OutboxPollSeconds   int    `yaml:"outbox_poll_seconds"`
		OutboxBatchSize     int    `yaml:"outbox_batch_size"`
		ConsumerPollSeconds int    `yaml:"consumer_poll_seconds"`
	} `yaml:"runtime"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:            "affiliate-core",
		Environment:          "development",
		LogLevel:             "info",
		HTTPPort:             8080,
		GRPCPort:             9090,
		PublicBaseURL:        "https://platform.com",
		StorageDriver:        StorageDriverPostgres,
		MaxDBConns:           20,
		KafkaConsumerGroup:   "affiliate-core",
		KafkaInputTopics:     []string{"commerce.order.completed"},
		LinkCacheTTL:         time.Minute,
		IdempotencyTTL:       7 * 24 * time.Hour,
		EventDedupTTL:        7 * 24 * time.Hour,
		OutboxPollInterval:   2 * time.Second,
		OutboxBatchSize:      100,
		ConsumerPollInterval: time.Second,
	}
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if raw, err := os.ReadFile(path); err == nil {
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		if err := applyFile(&cfg, f); err != nil {
			return Config{}, err
		}
	}

	cfg.ServiceID = envString("SERVICE_ID", cfg.ServiceID)
	cfg.Environment = envString("APP_ENV", cfg.Environment)
	cfg.LogLevel = strings.ToLower(envString("LOG_LEVEL", cfg.LogLevel))
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.PublicBaseURL = envString("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.CORSOrigins = envCSV("CORS_ORIGINS", cfg.CORSOrigins)

	cfg.StorageDriver = strings.ToLower(envString("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.DatabaseURL = envString("DB_URL", envString("POSTGRES_URL", cfg.DatabaseURL))
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.RedisURL = envString("REDIS_URL", cfg.RedisURL)

	cfg.JWTSecret = envString("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envString("JWT_ISSUER", cfg.JWTIssuer)

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envString("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaInputTopics = envCSV("KAFKA_INPUT_TOPICS", cfg.KafkaInputTopics)
	cfg.KafkaTopicPrefix = envString("KAFKA_TOPIC_PREFIX", cfg.KafkaTopicPrefix)

	cfg.TracingEnabled = envBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingEndpoint = envString("JAEGER_ENDPOINT", cfg.TracingEndpoint)

	cfg.LinkCacheTTL = envDuration("LINK_CACHE_TTL", cfg.LinkCacheTTL)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) error {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.Environment != "" {
		cfg.Environment = f.Service.Environment
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Affiliate.PublicBaseURL != "" {
		cfg.PublicBaseURL = f.Affiliate.PublicBaseURL
	}
	if len(f.Affiliate.CORSOrigins) > 0 {
		cfg.CORSOrigins = f.Affiliate.CORSOrigins
	}
	if f.Dependencies.StorageDriver != "" {
		cfg.StorageDriver = strings.ToLower(f.Dependencies.StorageDriver)
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.MaxDBConns > 0 {
		cfg.MaxDBConns = int32(f.Dependencies.MaxDBConns)
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if f.Auth.JWTIssuer != "" {
		cfg.JWTIssuer = f.Auth.JWTIssuer
	}
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	if f.Kafka.ConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Kafka.ConsumerGroup
	}
	if len(f.Kafka.InputTopics) > 0 {
		cfg.KafkaInputTopics = f.Kafka.InputTopics
	}
	if f.Kafka.TopicPrefix != "" {
		cfg.KafkaTopicPrefix = f.Kafka.TopicPrefix
	}
	if f.Tracing.Enabled {
		cfg.TracingEnabled = true
	}
	if f.Tracing.Endpoint != "" {
		cfg.TracingEndpoint = f.Tracing.Endpoint
	}
	if f.Runtime.LinkCacheTTL != "" {
		d, err := time.ParseDuration(f.Runtime.LinkCacheTTL)
		if err != nil {
			return fmt.Errorf("parse runtime.link_cache_ttl: %w", err)
		}
		cfg.LinkCacheTTL = d
	}
	if f.Runtime.IdempotencyTTLHours > 0 {
		cfg.IdempotencyTTL = time.Duration(f.Runtime.IdempotencyTTLHours) * time.Hour
	}
	if f.Runtime.EventDedupTTLHours > 0 {
		cfg.EventDedupTTL = time.Duration(f.Runtime.EventDedupTTLHours) * time.Hour
	}
	if f.Runtime.OutboxPollSeconds > 0 {
		cfg.OutboxPollInterval = time.Duration(f.Runtime.OutboxPollSeconds) * time.Second
	}
	if f.Runtime.OutboxBatchSize > 0 {
		cfg.OutboxBatchSize = f.Runtime.OutboxBatchSize
	}
	if f.Runtime.ConsumerPollSeconds > 0 {
		cfg.ConsumerPollInterval = time.Duration(f.Runtime.ConsumerPollSeconds) * time.Second
	}
	return nil
}

// Validate checks the fields the selected storage driver needs.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DB_URL/POSTGRES_URL for storage driver %q", c.StorageDriver)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if c.HTTPPort <= 0 || c.GRPCPort <= 0 {
		return fmt.Errorf("http and grpc ports must be positive")
	}
	if c.TracingEnabled && c.TracingEndpoint == "" {
		return fmt.Errorf("missing JAEGER_ENDPOINT while tracing is enabled")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaConsumerGroup == "" {
		return fmt.Errorf("missing KAFKA_CONSUMER_GROUP")
	}
	return nil
}

func envString(name, fallback string) string {
	if raw := strings.TrimSpace(os.Getenv(name)); raw != "" {
		return raw
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(name); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
