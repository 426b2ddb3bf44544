package api

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration, loaded from environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	LogFormat string // "json" (default) or "text"
	LogLevel  string // "debug", "info" (default), "warn", "error"

	LogFile       string // empty = stderr only
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// LoadConfig reads configuration from environment variables with
// sensible defaults.
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:      ":8080",
		DBPath:          "./data/todosync.db",
		ShutdownTimeout: 30 * time.Second,
		MaxBodyBytes:    1 << 20,
		LogFormat:       "json",
		LogLevel:        "info",
		LogMaxSizeMB:    50,
		LogMaxBackups:   3,
		LogMaxAgeDays:   28,
	}

	if v := os.Getenv("TODOSYNC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TODOSYNC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TODOSYNC_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("TODOSYNC_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("TODOSYNC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TODOSYNC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TODOSYNC_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("TODOSYNC_LOG_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LogMaxSizeMB = n
		}
	}
	if v := os.Getenv("TODOSYNC_LOG_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LogMaxBackups = n
		}
	}
	if v := os.Getenv("TODOSYNC_LOG_MAX_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LogMaxAgeDays = n
		}
	}

	return cfg
}
