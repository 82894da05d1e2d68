package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	JWT           JWTConfig           `envconfig:"JWT"`
	Auth          AuthConfig          `envconfig:"AUTH"`
	Store         StoreConfig         `envconfig:"STORE"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	Idempotency   IdempotencyConfig   `envconfig:"IDEMPOTENCY"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8000"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

// JWTConfig carries the token signing material. It is constructed once
// at startup and injected into the issuer and the verifier; nothing
// reads it from ambient globals.
type JWTConfig struct {
	Secret   string        `envconfig:"SECRET"`
	Issuer   string        `envconfig:"ISSUER" default:"todo-api"`
	Audience string        `envconfig:"AUDIENCE" default:"todo-client"`
	TTL      time.Duration `envconfig:"TTL" default:"168h"` // 7 days

	// Optional external issuer mode: when set, protected routes accept
	// RS256/ES256 tokens verified against this JWK set instead of the
	// shared secret.
	JWKSEndpoint string        `envconfig:"JWKS_ENDPOINT" required:"false"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

type AuthConfig struct {
	// plaintext or bcrypt. Plaintext matches the historical behavior of
	// the system this replaces; bcrypt is what new deployments should use.
	PasswordScheme string `envconfig:"PASSWORD_SCHEME" default:"plaintext"`
}

type StoreConfig struct {
	// dynamodb or memory. The memory backend keeps everything in-process
	// and is meant for local development and tests.
	Backend string `envconfig:"BACKEND" default:"dynamodb"`
}

type DynamoDBConfig struct {
	UsersTableName string `envconfig:"USERS_TABLE_NAME" default:"todo-users"`
	ItemsTableName string `envconfig:"ITEMS_TABLE_NAME" default:"todo-items"`
	Region         string `envconfig:"REGION" default:"ap-northeast-2"`
}

type IdempotencyConfig struct {
	Enabled bool          `envconfig:"ENABLED" default:"false"`
	TTL     time.Duration `envconfig:"TTL" default:"5m"`
}

type RedisConfig struct {
	Address             string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password            string        `envconfig:"PASSWORD" default:""`
	Database            int           `envconfig:"DATABASE" default:"0"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize            int           `envconfig:"POOL_SIZE" default:"100"`
	PoolTimeout         time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled          bool          `envconfig:"TLS_ENABLED" default:"false"`
	PasswordFromSecrets bool          `envconfig:"PASSWORD_FROM_SECRETS" default:"false"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"false"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type AWSConfig struct {
	Region     string `envconfig:"REGION" default:"ap-northeast-2"`
	Profile    string `envconfig:"PROFILE" default:""`
	SecretName string `envconfig:"SECRET_NAME" default:""`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validateConfig enforces the fail-fast contract: a misconfigured
// signing key or token metadata kills the process at startup instead of
// surfacing per request.
func validateConfig(cfg *Config) error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required: tokens cannot be signed without a key")
	}
	if cfg.JWT.Issuer == "" {
		return fmt.Errorf("JWT_ISSUER must not be empty")
	}
	if cfg.JWT.Audience == "" {
		return fmt.Errorf("JWT_AUDIENCE must not be empty")
	}
	if cfg.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWT.TTL)
	}

	switch cfg.Auth.PasswordScheme {
	case "plaintext", "bcrypt":
	default:
		return fmt.Errorf("unknown password scheme %q (expected plaintext or bcrypt)", cfg.Auth.PasswordScheme)
	}

	switch cfg.Store.Backend {
	case "dynamodb", "memory":
	default:
		return fmt.Errorf("unknown store backend %q (expected dynamodb or memory)", cfg.Store.Backend)
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	return nil
}
