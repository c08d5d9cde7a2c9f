package config

import (
	"os"

	"github.com/joho/godotenv"
)

// DefaultPath is where binaries look for configuration when TICKBOT_CONFIG is unset.
const DefaultPath = "internal/config/config.yaml"

// LoadEnv reads a .env file if present. Missing files are fine.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...) // best-effort
}

// Path resolves the config path from TICKBOT_CONFIG.
func Path() string {
	return getEnv("TICKBOT_CONFIG", DefaultPath)
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.App.LogLevel = getEnv("TICKBOT_LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.MetricsAddr = getEnv("TICKBOT_METRICS_ADDR", cfg.App.MetricsAddr)
	cfg.State.RedisAddr = getEnv("TICKBOT_REDIS_ADDR", cfg.State.RedisAddr)
	cfg.Paper.JournalPath = getEnv("TICKBOT_JOURNAL", cfg.Paper.JournalPath)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
