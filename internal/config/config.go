// internal/config/config.go
// Client configuration: JSON file with environment overrides. A missing
// config file is not an error; defaults apply.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"lobbyclient/internal/logger"
)

// Config holds everything the client binary needs at startup.
type Config struct {
	ServerURL            string        `json:"server_url"`
	APIBaseURL           string        `json:"api_base_url"`
	NatsURL              string        `json:"nats_url"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`
	ReconnectInterval    time.Duration `json:"-"`
	ReconnectIntervalMS  int           `json:"reconnect_interval_ms"`
	Log                  logger.Config `json:"log"`
}

// Default returns the configuration matching the stock server setup.
func Default() Config {
	return Config{
		ServerURL:            "ws://localhost:9002",
		APIBaseURL:           "http://localhost:9002",
		NatsURL:              "",
		MaxReconnectAttempts: 5,
		ReconnectIntervalMS:  3000,
		Log:                  logger.DefaultConfig(),
	}
}

// Load reads the JSON config file, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(filePath string) (Config, error) {
	cfg := Default()
	file, err := os.Open(filePath)
	if err == nil {
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnv(&cfg)
	cfg.ReconnectInterval = time.Duration(cfg.ReconnectIntervalMS) * time.Millisecond
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOBBY_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("LOBBY_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NatsURL = v
	}
	if v := os.Getenv("LOBBY_MAX_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxReconnectAttempts = n
		}
	}
	if v := os.Getenv("LOBBY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
