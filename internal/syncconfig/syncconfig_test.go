package syncconfig

import (
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("TODOSYNC_CONFIG_DIR", t.TempDir())
}

func TestLoadConfigMissingFile(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sync.URL != "" {
		t.Errorf("empty config has url %q", cfg.Sync.URL)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	isolate(t)

	want := &Config{
		Store: "bolt",
		Sync: SyncConfig{
			URL:   "http://sync.example.com",
			Retry: RetryConfig{BaseDelay: "2s"},
		},
	}
	if err := SaveConfig(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Store != "bolt" || got.Sync.URL != want.Sync.URL || got.Sync.Retry.BaseDelay != "2s" {
		t.Errorf("round trip: %+v", got)
	}
}

func TestServerURLPriority(t *testing.T) {
	isolate(t)

	if got := GetServerURL(); got != defaultServerURL {
		t.Errorf("default url: %q", got)
	}

	SaveConfig(&Config{Sync: SyncConfig{URL: "http://from-file"}})
	if got := GetServerURL(); got != "http://from-file" {
		t.Errorf("config url: %q", got)
	}

	t.Setenv("TODOSYNC_URL", "http://from-env")
	if got := GetServerURL(); got != "http://from-env" {
		t.Errorf("env url: %q", got)
	}
}

func TestStoreBackendNormalizes(t *testing.T) {
	isolate(t)

	if got := GetStoreBackend(); got != "sqlite" {
		t.Errorf("default backend: %q", got)
	}

	t.Setenv("TODOSYNC_STORE", "BOLT")
	if got := GetStoreBackend(); got != "bolt" {
		t.Errorf("bolt backend: %q", got)
	}

	t.Setenv("TODOSYNC_STORE", "postgres")
	if got := GetStoreBackend(); got != "sqlite" {
		t.Errorf("unknown backend fell back to %q", got)
	}
}

func TestRetrySettings(t *testing.T) {
	isolate(t)

	if got := GetMaxRetries(); got != 3 {
		t.Errorf("default max retries: %d", got)
	}
	if got := GetBaseDelay(); got != time.Second {
		t.Errorf("default base delay: %v", got)
	}
	if got := GetCapDelay(); got != 30*time.Second {
		t.Errorf("default cap delay: %v", got)
	}

	n := 5
	SaveConfig(&Config{Sync: SyncConfig{Retry: RetryConfig{
		MaxRetries: &n, BaseDelay: "500ms", CapDelay: "1m",
	}}})
	if got := GetMaxRetries(); got != 5 {
		t.Errorf("config max retries: %d", got)
	}
	if got := GetBaseDelay(); got != 500*time.Millisecond {
		t.Errorf("config base delay: %v", got)
	}
	if got := GetCapDelay(); got != time.Minute {
		t.Errorf("config cap delay: %v", got)
	}

	t.Setenv("TODOSYNC_MAX_RETRIES", "1")
	t.Setenv("TODOSYNC_BASE_DELAY", "garbage")
	if got := GetMaxRetries(); got != 1 {
		t.Errorf("env max retries: %d", got)
	}
	// An unparsable env value falls through to the config file.
	if got := GetBaseDelay(); got != 500*time.Millisecond {
		t.Errorf("base delay with bad env: %v", got)
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	isolate(t)

	first, err := GetDeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if first == "" {
		t.Fatal("empty device id")
	}

	second, err := GetDeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if second != first {
		t.Errorf("device id changed: %q then %q", first, second)
	}
}

func TestAutoSyncToggle(t *testing.T) {
	isolate(t)

	if !GetAutoSyncEnabled() {
		t.Error("auto sync not on by default")
	}

	t.Setenv("TODOSYNC_AUTO", "0")
	if GetAutoSyncEnabled() {
		t.Error("TODOSYNC_AUTO=0 did not disable auto sync")
	}
}

func TestSyncOnStartToggle(t *testing.T) {
	isolate(t)

	if !GetAutoSyncOnStart() {
		t.Error("sync on start not on by default")
	}

	off := false
	SaveConfig(&Config{Sync: SyncConfig{Auto: AutoSyncConfig{OnStart: &off}}})
	if GetAutoSyncOnStart() {
		t.Error("config on_start=false not honored")
	}

	t.Setenv("TODOSYNC_AUTO_START", "1")
	if !GetAutoSyncOnStart() {
		t.Error("TODOSYNC_AUTO_START=1 did not override config")
	}
}
