package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DBDriver     string
	DatabasePath string
	DatabaseDSN  string
	JWTSecret    string
	LogDir       string

	// SweepSchedule is a cron spec for the abuse sweep; empty disables it.
	SweepSchedule string

	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// honoured. Empty means client IPs come from the socket only.
	TrustedProxies []string

	Webhooks WebhookConfig
	Abuse    AbuseConfig
}

// WebhookConfig tunes inbound webhook handling.
type WebhookConfig struct {
	// BodyLogLimit is the largest request body stored verbatim in the request log.
	BodyLogLimit int
	// RateWindow is the trailing window the per-setting rate limit counts over.
	RateWindow time.Duration
}

// AbuseConfig holds the flood detector windows and thresholds.
type AbuseConfig struct {
	FailedLoginWindow    time.Duration
	FailedLoginThreshold int

	WebhookFloodWindow    time.Duration
	WebhookFloodThreshold int

	CallSpikeWindow     time.Duration
	CallSpikeMultiplier int
	CallSpikeBaseline   int
	CallHistoryDays     int
}

// DefaultWebhookConfig returns the production webhook defaults.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		BodyLogLimit: 10 * 1024,
		RateWindow:   time.Minute,
	}
}

// DefaultAbuseConfig returns the production detector defaults.
func DefaultAbuseConfig() AbuseConfig {
	return AbuseConfig{
		FailedLoginWindow:     15 * time.Minute,
		FailedLoginThreshold:  5,
		WebhookFloodWindow:    5 * time.Minute,
		WebhookFloodThreshold: 100,
		CallSpikeWindow:       time.Hour,
		CallSpikeMultiplier:   3,
		CallSpikeBaseline:     10,
		CallHistoryDays:       7,
	}
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	abuse := DefaultAbuseConfig()
	abuse.FailedLoginThreshold = getEnvInt("VOICEDESK_FAILED_LOGIN_THRESHOLD", abuse.FailedLoginThreshold)
	abuse.WebhookFloodThreshold = getEnvInt("VOICEDESK_WEBHOOK_FLOOD_THRESHOLD", abuse.WebhookFloodThreshold)
	abuse.CallSpikeMultiplier = getEnvInt("VOICEDESK_CALL_SPIKE_MULTIPLIER", abuse.CallSpikeMultiplier)
	abuse.CallSpikeBaseline = getEnvInt("VOICEDESK_CALL_SPIKE_BASELINE", abuse.CallSpikeBaseline)

	webhooks := DefaultWebhookConfig()
	webhooks.BodyLogLimit = getEnvInt("VOICEDESK_WEBHOOK_BODY_LOG_LIMIT", webhooks.BodyLogLimit)

	cfg := Config{
		Environment:    getEnv("VOICEDESK_ENV", "development"),
		HTTPPort:       getEnv("VOICEDESK_HTTP_PORT", "8080"),
		DBDriver:       getEnv("VOICEDESK_DB_DRIVER", "sqlite"),
		DatabasePath:   getEnv("VOICEDESK_DB_PATH", filepath.Join("data", "voicedesk.db")),
		DatabaseDSN:    getEnv("VOICEDESK_DB_DSN", ""),
		JWTSecret:      getEnv("VOICEDESK_JWT_SECRET", "change-me-in-production"),
		LogDir:         getEnv("VOICEDESK_LOG_DIR", filepath.Join("data", "logs")),
		SweepSchedule:  os.Getenv("VOICEDESK_SWEEP_SCHEDULE"),
		TrustedProxies: getEnvList("VOICEDESK_TRUSTED_PROXIES"),
		Webhooks:       webhooks,
		Abuse:          abuse,
	}
	if _, set := os.LookupEnv("VOICEDESK_SWEEP_SCHEDULE"); !set {
		cfg.SweepSchedule = "@every 5m"
	}

	switch cfg.DBDriver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return Config{}, fmt.Errorf("ensure data directory: %w", err)
		}
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return Config{}, fmt.Errorf("VOICEDESK_DB_DSN is required for the postgres driver")
		}
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	return cfg, nil
}

// IsDevelopment reports whether verbose diagnostics may be exposed.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvList splits a comma separated variable, dropping blank items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
