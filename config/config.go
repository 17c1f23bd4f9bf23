package config

import "os"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Serving
	GatewayAddr string
	MetricsAddr string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string

	// Active dataset name, e.g. "aapl_3months_daily"
	Dataset string

	// Operational alerts (empty disables webhook delivery)
	WebhookURL string

	// Admin
	AdminTOTPSecret string
	LogLevel        string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		GatewayAddr: getEnv("GATEWAY_ADDR", ":8090"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/overlay.db"),

		Dataset: getEnv("DATASET", "aapl_3months_daily"),

		WebhookURL: getEnv("WEBHOOK_URL", ""),

		AdminTOTPSecret: getEnv("ADMIN_TOTP_SECRET", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
