// Package config loads plume configuration from the platform-native backend
// and environment variables.
package config

import (
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Ollama  OllamaConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// ChatTimeout parses the configured Ollama timeout, falling back to 30s on
// a malformed value.
func (c OllamaConfig) ChatTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SlogLevel maps the configured log level to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "phi3.5",
			Timeout: "30s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.plume.app). On Linux the
// backend is a JSON file at $XDG_CONFIG_HOME/plume/config.json.
//
// Environment variables (PLUME_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}
