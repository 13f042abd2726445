package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	DBConnLifetime  time.Duration `mapstructure:"DB_MAX_CONN_LIFETIME"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL     string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthTokenTTL    time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	AuditQueueSize  int           `mapstructure:"AUDIT_QUEUE_SIZE"`
	AuditWorkers    int           `mapstructure:"AUDIT_WORKERS"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_MAX_CONN_LIFETIME",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY", "AUTH_TOKEN_TTL",
	"CORS_ORIGINS", "AUDIT_QUEUE_SIZE", "AUDIT_WORKERS", "SHUTDOWN_TIMEOUT",
}

// MinSigningKeyLen is the shortest accepted HS256 shared secret.
const MinSigningKeyLen = 32

// Load reads .env (if present) and the environment. It does not validate;
// commands call Validate for the settings they need.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_CONN_LIFETIME", "1h")
	v.SetDefault("AUTH_TOKEN_TTL", "1h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUDIT_QUEUE_SIZE", 1024)
	v.SetDefault("AUDIT_WORKERS", 4)
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the settings the server needs. Exactly one credential
// source must be configured: a shared signing key or a JWKS endpoint.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	hasKey, hasJWKS := c.AuthSigningKey != "", c.AuthJWKSURL != ""
	switch {
	case hasKey && hasJWKS:
		return errors.New("set only one of AUTH_SIGNING_KEY and AUTH_JWKS_URL")
	case !hasKey && !hasJWKS:
		return errors.New("one of AUTH_SIGNING_KEY or AUTH_JWKS_URL is required")
	}
	if hasKey {
		if err := c.ValidateSigningKey(); err != nil {
			return err
		}
		if c.IsProduction() && c.AuthIssuer == "" {
			return errors.New("AUTH_ISSUER is required in production when AUTH_SIGNING_KEY is used")
		}
	}
	if c.AuditWorkers <= 0 || c.AuditQueueSize <= 0 {
		return fmt.Errorf("AUDIT_WORKERS and AUDIT_QUEUE_SIZE must be positive, got %d and %d", c.AuditWorkers, c.AuditQueueSize)
	}
	return nil
}

// ValidateSigningKey is the subset of Validate needed to mint tokens.
func (c *Config) ValidateSigningKey() error {
	if len(c.AuthSigningKey) < MinSigningKeyLen {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least %d bytes, got %d", MinSigningKeyLen, len(c.AuthSigningKey))
	}
	return nil
}
