package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration values.
type Config struct {
	Secret            string
	DatabaseDSN       string
	LogMode           string
	LogLevel          string
	LogFile           string
	LowStockThreshold int64
	ExpiryWindowDays  int
	SeedCSV           string
	AdminPassword     string
	SessionTTL        time.Duration
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "file:pharmacy.db?_pragma=busy_timeout(5000)"
	}

	mode := os.Getenv("LOG_MODE")
	if mode != "production" {
		mode = "development"
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	return Config{
		Secret:            secret,
		DatabaseDSN:       dsn,
		LogMode:           mode,
		LogLevel:          level,
		LogFile:           os.Getenv("LOG_FILE"),
		LowStockThreshold: int64(intEnv("LOW_STOCK_THRESHOLD", 10)),
		ExpiryWindowDays:  intEnv("EXPIRY_WINDOW_DAYS", 30),
		SeedCSV:           os.Getenv("SEED_CSV"),
		AdminPassword:     adminPassword,
		SessionTTL:        durationEnv("SESSION_TTL", 24*time.Hour),
	}
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("invalid %s value %q, defaulting to %d", key, raw, fallback)
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("invalid %s value %q, defaulting to %s", key, raw, fallback)
		return fallback
	}
	return v
}
