// Package config reads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/flashdeck/backend/internal/store"
)

type Config struct {
	Addr       string
	DBPath     string
	QuotaBytes int64
	SeedFile   string
}

// Load applies .env (when present) and resolves settings with defaults.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:       getenv("ADDR", ":8080"),
		DBPath:     getenv("DB_PATH", "flashdeck.db"),
		QuotaBytes: store.DefaultQuotaBytes,
		SeedFile:   os.Getenv("SEED_FILE"),
	}
	if v := os.Getenv("QUOTA_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.QuotaBytes = n
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
