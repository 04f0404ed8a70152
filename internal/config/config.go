package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/JustinTDCT/CineLog/internal/db"
	"github.com/JustinTDCT/CineLog/internal/settings"
)

const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

type Config struct {
	Port           int
	KVBackend      string
	DatabaseURL    string
	SQLitePath     string
	RedisAddr      string
	RedisPrefix    string
	DataDir        string
	CatalogFile    string
	SearchDebounce time.Duration
	OverviewLimit  int
	APIKeyHash     string
	JWTSecret      string
	JWTTTL         time.Duration
	ExportCron     string
	LogFile        string
}

// Load reads .env when present, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env: %v", err)
	}

	dataDir := env("DATA_DIR", "./data")
	return &Config{
		Port:           envInt("PORT", 8080),
		KVBackend:      env("KV_BACKEND", BackendFile),
		DatabaseURL:    env("DATABASE_URL", ""),
		SQLitePath:     env("SQLITE_PATH", filepath.Join(dataDir, "cinelog.db")),
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisPrefix:    env("REDIS_PREFIX", "cinelog:"),
		DataDir:        dataDir,
		CatalogFile:    env("CATALOG_FILE", ""),
		SearchDebounce: time.Duration(envInt("SEARCH_DEBOUNCE_MS", 300)) * time.Millisecond,
		OverviewLimit:  envInt("OVERVIEW_LIMIT", 6),
		APIKeyHash:     env("API_KEY_HASH", ""),
		JWTSecret:      env("JWT_SECRET", ""),
		JWTTTL:         time.Duration(envInt("JWT_TTL_HOURS", 24)) * time.Hour,
		ExportCron:     env("EXPORT_CRON", "@daily"),
		LogFile:        env("LOG_FILE", ""),
	}
}

func (c *Config) Validate() error {
	switch c.KVBackend {
	case BackendFile, BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("KV_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("KV_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown KV_BACKEND %q", c.KVBackend)
	}
	if c.SearchDebounce <= 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE_MS must be positive")
	}
	if c.AuthEnabled() && c.JWTSecret == "" {
		return fmt.Errorf("API_KEY_HASH requires JWT_SECRET")
	}
	return nil
}

// SQLBackend reports whether the collection lives in a SQL database, which
// also makes the settings table available.
func (c *Config) SQLBackend() bool {
	return c.KVBackend == BackendPostgres || c.KVBackend == BackendSQLite
}

func (c *Config) AuthEnabled() bool {
	return c.APIKeyHash != ""
}

func (c *Config) JobsEnabled() bool {
	return c.RedisAddr != ""
}

// MergeFromDB overlays runtime-editable settings stored in the database.
func (c *Config) MergeFromDB(d *db.DB) {
	rows, err := d.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("[config] skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case settings.KeySearchDebounceMS:
			if v, err := cast.ToIntE(value); err == nil && v > 0 {
				c.SearchDebounce = time.Duration(v) * time.Millisecond
			}
		case settings.KeyOverviewLimit:
			if v, err := cast.ToIntE(value); err == nil && v > 0 {
				c.OverviewLimit = v
			}
		case settings.KeyExportCron:
			c.ExportCron = cast.ToString(value)
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
