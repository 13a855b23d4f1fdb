package config

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=nursery port=5432 sslmode=disable"

// Company is printed in the header of every exported report.
type Company struct {
	Name    string
	Address string
	Email   string
	Phone   string
}

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	CORSOrigins string
	// PayrollCron is a five-field cron spec; empty disables scheduled salary generation.
	PayrollCron string
	LogLevel    string
	Company     Company
}

func Load() *Config {
	// .env is optional; real environments set variables directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: .env could not be read: %v", err)
	}

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		AccessTTL:   getDuration("JWT_ACCESS_TTL", time.Hour),
		RefreshTTL:  getDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		PayrollCron: getEnv("PAYROLL_CRON", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Company: Company{
			Name:    getEnv("COMPANY_NAME", "PP Nursery Management"),
			Address: getEnv("COMPANY_ADDRESS", "123 Nursery Street, Dubai, UAE"),
			Email:   getEnv("COMPANY_EMAIL", "info@ppnursery.com"),
			Phone:   getEnv("COMPANY_PHONE", "+971-4-123-4567"),
		},
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters long")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Warn("DATABASE_DSN is using the local default; set it explicitly outside development")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Warn("CORS_ALLOWED_ORIGINS is using the local default")
	}

	return cfg
}

// ApplyLogLevel maps LOG_LEVEL onto the fiber logger.
func (c *Config) ApplyLogLevel() {
	switch c.LogLevel {
	case "debug":
		log.SetLevel(log.LevelDebug)
	case "warn":
		log.SetLevel(log.LevelWarn)
	case "error":
		log.SetLevel(log.LevelError)
	default:
		log.SetLevel(log.LevelInfo)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("[FATAL] %s must be a positive duration such as 1h or 30m, got %q", key, v)
	}
	return d
}
