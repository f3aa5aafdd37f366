package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendCatalog  = "catalog"
)

type Config struct {
	Port         string
	GinMode      string
	StoreBackend string
	DatabaseURL  string
	SQLitePath   string
	CatalogPath  string
	EnableRunLog bool
	LogLevel     string
	InferTimeout time.Duration
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "release"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   getEnv("SQLITE_PATH", "ddx.db"),
		CatalogPath:  os.Getenv("CATALOG_PATH"),
		EnableRunLog: strings.EqualFold(getEnv("ENABLE_RUN_LOG", "false"), "true"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	timeout, err := time.ParseDuration(getEnv("INFER_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("parse INFER_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("INFER_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.InferTimeout = timeout

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND=sqlite")
		}
	case BackendCatalog:
		if cfg.CatalogPath == "" {
			return nil, fmt.Errorf("CATALOG_PATH is required when STORE_BACKEND=catalog")
		}
		if cfg.EnableRunLog {
			return nil, fmt.Errorf("ENABLE_RUN_LOG requires a database backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
