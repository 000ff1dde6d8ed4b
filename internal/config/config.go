// Package config loads runtime settings from the environment (optionally
// seeded from a .env file) and holds the domain constants of the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration of the server and the admin CLI.
type Config struct {
	Env      string
	HTTPAddr string
	LogLevel string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// StorageBackend is "gcs" or "memory".
	StorageBackend string
	// Buckets maps the logical bucket names (photos, audio, documents) to
	// the object store bucket that holds them.
	Buckets       map[string]string
	PublicURLBase string

	TelegramToken      string
	TelegramOfficialID int64

	CORSOrigins []string

	AwardRetrySchedule string
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("APP_ENV", "production"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseDSN:    os.Getenv("DATABASE_URL"),
		RedisAddr:      lookupEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      getEnv("JWT_ISSUER", "wangsammo-service"),
		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),
		Buckets: map[string]string{
			"photos":    getEnv("BUCKET_PHOTOS", "photos"),
			"audio":     getEnv("BUCKET_AUDIO", "audio"),
			"documents": getEnv("BUCKET_DOCUMENTS", "documents"),
		},
		PublicURLBase:      getEnv("PUBLIC_URL_BASE", "https://storage.googleapis.com"),
		TelegramToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		CORSOrigins:        splitList(os.Getenv("CORS_ORIGINS")),
		AwardRetrySchedule: getEnv("AWARD_RETRY_SCHEDULE", AwardRetrySchedule),
	}

	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_USER", "user"),
			getEnv("DB_PASSWORD", "password"),
			getEnv("DB_NAME", "wangsammodb"),
			getEnv("DB_PORT", "5432"),
		)
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "72h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if raw := os.Getenv("TELEGRAM_OFFICIALS_CHAT_ID"); raw != "" {
		if cfg.TelegramOfficialID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_OFFICIALS_CHAT_ID: %w", err)
		}
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StorageBackend {
	case "gcs", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// lookupEnv is getEnv for settings where an empty value means "off".
func lookupEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
