// Package config reads CLI-facing settings from the environment. The
// library API itself takes everything as call-time arguments; this
// only covers where the provider lives and where the catalog cache
// sits on disk.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// StationsURL is the gzipped station dump endpoint.
	StationsURL string
	// BulkURL is the base URL for per-station observation archives.
	BulkURL string
	// FTPHost, when set, switches bulk downloads to the FTP mirror.
	FTPHost string
	// CachePath is the SQLite file holding the station catalog.
	CachePath string

	HTTPTimeout time.Duration
}

// Load reads configuration from the environment with defaults,
// honouring a .env file when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg := &Config{
		StationsURL: os.Getenv("METEOFILL_STATIONS_URL"),
		BulkURL:     os.Getenv("METEOFILL_BULK_URL"),
		FTPHost:     os.Getenv("METEOFILL_FTP_HOST"),
		CachePath:   getenvDefault("METEOFILL_CACHE", "data/meteofill.db"),
	}
	if cfg.StationsURL == "" {
		return nil, fmt.Errorf("METEOFILL_STATIONS_URL environment variable required")
	}
	if cfg.BulkURL == "" && cfg.FTPHost == "" {
		return nil, fmt.Errorf("METEOFILL_BULK_URL or METEOFILL_FTP_HOST environment variable required")
	}

	timeoutStr := getenvDefault("METEOFILL_HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid METEOFILL_HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
