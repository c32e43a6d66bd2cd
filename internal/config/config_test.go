// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "ws://localhost:9002" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Fatalf("max attempts = %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectInterval != 3*time.Second {
		t.Fatalf("interval = %v", cfg.ReconnectInterval)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_config.json")
	body := `{"server_url":"ws://lobby:9002","max_reconnect_attempts":2,"reconnect_interval_ms":500}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOBBY_SERVER_URL", "ws://override:9002")
	t.Setenv("LOBBY_MAX_RECONNECT_ATTEMPTS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "ws://override:9002" {
		t.Fatalf("env override lost: %q", cfg.ServerURL)
	}
	if cfg.MaxReconnectAttempts != 7 {
		t.Fatalf("max attempts = %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectInterval != 500*time.Millisecond {
		t.Fatalf("interval = %v", cfg.ReconnectInterval)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed config should error")
	}
}
