// Package syncconfig loads and persists the client-side configuration
// stored at ~/.config/todosync/config.json. Every getter applies the
// same priority: TODOSYNC_* environment variable, then config.json,
// then the built-in default.
package syncconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AutoSyncConfig holds auto-sync settings.
type AutoSyncConfig struct {
	Enabled *bool  `json:"enabled,omitempty"` // nil = default true
	OnStart *bool  `json:"on_start,omitempty"` // nil = default true
	Probe   string `json:"probe,omitempty"`    // duration string, default "15s"
}

// RetryConfig tunes the backoff applied after failed sync cycles.
type RetryConfig struct {
	MaxRetries *int   `json:"max_retries,omitempty"` // nil = default 3
	BaseDelay  string `json:"base_delay,omitempty"`  // duration string, default "1s"
	CapDelay   string `json:"cap_delay,omitempty"`   // duration string, default "30s"
}

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	URL   string         `json:"url"`
	Auto  AutoSyncConfig `json:"auto"`
	Retry RetryConfig    `json:"retry"`
}

// Config is the global todosync config.
type Config struct {
	Store    string     `json:"store,omitempty"` // "sqlite" or "bolt", default sqlite
	DBPath   string     `json:"db_path,omitempty"`
	DeviceID string     `json:"device_id,omitempty"`
	Sync     SyncConfig `json:"sync"`
}

const defaultServerURL = "http://localhost:8080"

// ConfigDir returns the config directory, creating it if necessary.
// TODOSYNC_CONFIG_DIR overrides the default ~/.config/todosync.
func ConfigDir() (string, error) {
	dir := os.Getenv("TODOSYNC_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "todosync")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the global config. A missing file yields an empty
// config, not an error.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config to config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// GetServerURL returns the sync server URL.
// Priority: TODOSYNC_URL env > config.json > default.
func GetServerURL() string {
	if v := os.Getenv("TODOSYNC_URL"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// GetStoreBackend returns the replica backend, "sqlite" or "bolt".
// Priority: TODOSYNC_STORE env > config.json > "sqlite".
func GetStoreBackend() string {
	v := os.Getenv("TODOSYNC_STORE")
	if v == "" {
		if cfg, err := LoadConfig(); err == nil {
			v = cfg.Store
		}
	}
	switch strings.ToLower(v) {
	case "bolt":
		return "bolt"
	default:
		return "sqlite"
	}
}

// GetDBPath returns the path of the local replica database.
// Priority: TODOSYNC_DB env > config.json > <config dir>/todos.<ext>.
func GetDBPath() (string, error) {
	if v := os.Getenv("TODOSYNC_DB"); v != "" {
		return v, nil
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	ext := "db"
	if GetStoreBackend() == "bolt" {
		ext = "bolt"
	}
	return filepath.Join(dir, "todos."+ext), nil
}

// GetDeviceID returns the stable device identifier, generating and
// persisting one on first use.
func GetDeviceID() (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	if cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}
	cfg.DeviceID = uuid.NewString()
	if err := SaveConfig(cfg); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return cfg.DeviceID, nil
}

// GetMaxRetries returns how many times a failed cycle is retried.
// Priority: TODOSYNC_MAX_RETRIES env > config.json > 3.
func GetMaxRetries() int {
	if v := os.Getenv("TODOSYNC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Retry.MaxRetries != nil && *cfg.Sync.Retry.MaxRetries >= 0 {
		return *cfg.Sync.Retry.MaxRetries
	}
	return 3
}

// GetBaseDelay returns the first retry delay.
// Priority: TODOSYNC_BASE_DELAY env > config.json > 1s.
func GetBaseDelay() time.Duration {
	return durationSetting("TODOSYNC_BASE_DELAY", func(cfg *Config) string {
		return cfg.Sync.Retry.BaseDelay
	}, time.Second)
}

// GetCapDelay returns the backoff ceiling.
// Priority: TODOSYNC_CAP_DELAY env > config.json > 30s.
func GetCapDelay() time.Duration {
	return durationSetting("TODOSYNC_CAP_DELAY", func(cfg *Config) string {
		return cfg.Sync.Retry.CapDelay
	}, 30*time.Second)
}

// GetProbeInterval returns the connectivity probe interval.
// Priority: TODOSYNC_PROBE env > config.json sync.auto.probe > 15s.
func GetProbeInterval() time.Duration {
	return durationSetting("TODOSYNC_PROBE", func(cfg *Config) string {
		return cfg.Sync.Auto.Probe
	}, 15*time.Second)
}

// GetAutoSyncEnabled returns whether mutations trigger a sync.
// Priority: TODOSYNC_AUTO env > config.json sync.auto.enabled > true.
func GetAutoSyncEnabled() bool {
	if v := parseBoolEnv("TODOSYNC_AUTO"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Auto.Enabled != nil {
		return *cfg.Sync.Auto.Enabled
	}
	return true
}

// GetAutoSyncOnStart returns whether to sync on startup.
// Priority: TODOSYNC_AUTO_START env > config.json sync.auto.on_start > true.
func GetAutoSyncOnStart() bool {
	if v := parseBoolEnv("TODOSYNC_AUTO_START"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Auto.OnStart != nil {
		return *cfg.Sync.Auto.OnStart
	}
	return true
}

func durationSetting(envKey string, fromConfig func(*Config) string, def time.Duration) time.Duration {
	if v := os.Getenv(envKey); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := LoadConfig()
	if err == nil {
		if v := fromConfig(cfg); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
		}
	}
	return def
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := strings.ToLower(os.Getenv(envKey))
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
