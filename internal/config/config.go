package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store drivers understood by the API server.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort      string        `env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`

	// OpenTelemetry settings
	OTelEnabled  bool   `env:"OTEL_ENABLED" env-default:"true"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" env-default:"go-task-manager"`
	Environment  string `env:"ENVIRONMENT" env-default:"development"`

	Store StoreConfig
	Auth  AuthConfig
	Web   WebConfig
}

// StoreConfig selects and configures the task store.
type StoreConfig struct {
	Driver        string        `env:"STORE_DRIVER" env-default:"memory"`
	MongoURI      string        `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGO_DATABASE" env-default:"tasks"`
	MongoTimeout  time.Duration `env:"MONGO_CONNECT_TIMEOUT" env-default:"5s"`
	SQLitePath    string        `env:"SQLITE_PATH" env-default:"tasks.db"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Secret   string        `env:"JWT_SECRET" env-default:"change-me-in-production"`
	Issuer   string        `env:"JWT_ISSUER" env-default:"go-task-manager"`
	TokenTTL time.Duration `env:"JWT_TTL" env-default:"24h"`
}

// WebConfig configures the browser UI server.
type WebConfig struct {
	Port       string `env:"WEB_PORT" env-default:"3000"`
	APIBaseURL string `env:"API_BASE_URL" env-default:"http://localhost:8080/api"`
	SessionKey string `env:"WEB_SESSION_KEY" env-default:"change-me-in-production-session-key"`
}

// Load returns configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case DriverMemory, DriverMongo, DriverSQLite:
	default:
		return nil, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.Store.Driver)
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Web.SessionKey == "" {
		return nil, fmt.Errorf("WEB_SESSION_KEY is required")
	}
	cfg.Web.APIBaseURL = strings.TrimRight(cfg.Web.APIBaseURL, "/")
	return &cfg, nil
}
