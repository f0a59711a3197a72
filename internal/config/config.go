package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the boundary-cut streaming service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	UpstreamMode         string
	UpstreamHTTPURL      string
	UpstreamGatewayURL   string
	UpstreamGatewayToken string

	// Models overrides the built-in model registry; comma-separated
	// id:maxTokens:temperature entries.
	Models string

	DatabaseURL  string
	HistoryLimit int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("STORYCUT_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("STORYCUT_METRICS_NAMESPACE", "storycut"),
		UpstreamMode:         envOrDefault("UPSTREAM_MODE", "auto"),
		UpstreamHTTPURL:      trimmedEnv("UPSTREAM_HTTP_URL"),
		UpstreamGatewayURL:   trimmedEnv("UPSTREAM_GATEWAY_URL"),
		UpstreamGatewayToken: trimmedEnv("UPSTREAM_GATEWAY_TOKEN"),
		Models:               trimmedEnv("STORYCUT_MODELS"),
		DatabaseURL:          trimmedEnv("DATABASE_URL"),
		HistoryLimit:         256,
		ShutdownTimeout:      15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("STORYCUT_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("STORYCUT_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.ShutdownTimeout < time.Second {
		return Config{}, fmt.Errorf("STORYCUT_SHUTDOWN_TIMEOUT must be at least 1s")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("STORYCUT_HISTORY_LIMIT must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.UpstreamMode)) {
	case "auto", "http", "gateway", "mock":
	default:
		return Config{}, fmt.Errorf("invalid UPSTREAM_MODE: %q (expected auto|http|gateway|mock)", cfg.UpstreamMode)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
