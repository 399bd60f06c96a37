// Package config loads service configuration from the environment.
// A .env file is honored in development; real deployments set variables
// directly.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/estore.db"`
	RedisAddr string `envconfig:"REDIS_ADDR" default:""` // empty disables the catalog cache

	JWTSecret       string        `envconfig:"JWT_SECRET" default:"dev-only-secret"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"720h"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"estore-api"`
	TracingOn   bool   `envconfig:"OTEL_ENABLED" default:"false"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
