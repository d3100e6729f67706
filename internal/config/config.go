package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig `envconfig:"LOG"`
	Auth      AuthConfig
	Webhook   WebhookConfig
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	Tasks     TasksConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name           string        `envconfig:"NAME" default:"todo-service"`
	Env            string        `envconfig:"ENV" default:"development"`
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	Port           string        `envconfig:"PORT" default:"8080"`
	Version        string        `envconfig:"VERSION" default:"dev"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN           string        `envconfig:"DSN"`
	MaxConns      int32         `envconfig:"MAX_CONNS" default:"10"`
	MinConns      int32         `envconfig:"MIN_CONNS" default:"2"`
	RunMigrations bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	ConnMaxIdle   time.Duration `envconfig:"CONN_MAX_IDLE" default:"30s"`
	ConnMaxLife   time.Duration `envconfig:"CONN_MAX_LIFE" default:"5m"`
}

// RedisConfig holds Redis connection values. An empty address disables the delivery log.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR" default:"127.0.0.1:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
}

// DevJWTSecret is the built-in signing secret. It is only accepted in development.
const DevJWTSecret = "dev-secret"

const envDevelopment = "development"

// Role sources understood by AuthConfig.RoleSource.
const (
	RoleSourceClaim    = "claim"
	RoleSourceProvider = "provider"
)

// AuthConfig defines how session tokens and roles are resolved.
type AuthConfig struct {
	JWTSecret         string        `envconfig:"JWT_SECRET" default:"dev-secret"`
	Issuer            string        `envconfig:"ISSUER"`
	TokenTTL          time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	RoleSource        string        `envconfig:"ROLE_SOURCE" default:"claim"`
	ProviderAPIURL    string        `envconfig:"PROVIDER_API_URL"`
	ProviderSecretKey string        `envconfig:"PROVIDER_SECRET_KEY"`
	ProviderTimeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"5s"`
	RoleCacheTTL      time.Duration `envconfig:"ROLE_CACHE_TTL" default:"30s"`
}

// WebhookConfig configures identity event ingestion.
type WebhookConfig struct {
	Secret      string        `envconfig:"SECRET"`
	DeliveryTTL time.Duration `envconfig:"DELIVERY_TTL" default:"24h"`
}

// RateLimitConfig configures the per-caller token bucket.
type RateLimitConfig struct {
	RPS             float64       `envconfig:"RPS" default:"5"`
	Burst           int           `envconfig:"BURST" default:"20"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"5m"`
}

// TasksConfig holds listing defaults.
type TasksConfig struct {
	PageSize int `envconfig:"PAGE_SIZE" default:"10"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations that cannot serve requests.
func (c *Config) Validate() error {
	switch c.Auth.RoleSource {
	case RoleSourceClaim:
	case RoleSourceProvider:
		if c.Auth.ProviderAPIURL == "" || c.Auth.ProviderSecretKey == "" {
			return fmt.Errorf("AUTH_PROVIDER_API_URL and AUTH_PROVIDER_SECRET_KEY are required when AUTH_ROLE_SOURCE=%s", RoleSourceProvider)
		}
	default:
		return fmt.Errorf("invalid AUTH_ROLE_SOURCE %q", c.Auth.RoleSource)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Auth.JWTSecret == DevJWTSecret && c.App.Env != envDevelopment {
		return fmt.Errorf("AUTH_JWT_SECRET must be set when APP_ENV=%s", c.App.Env)
	}
	if c.Tasks.PageSize <= 0 {
		return fmt.Errorf("invalid TASKS_PAGE_SIZE %d", c.Tasks.PageSize)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}
