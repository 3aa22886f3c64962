// Package config reads server settings from the environment (and .env).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const devSecret = "dev_secret_change_me"

type Config struct {
	Port         string
	DatabaseURL  string
	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	Production   bool
	ClientOrigin string
	UploadDir    string
	RoundTTL     time.Duration
	SweepEvery   time.Duration
	SeedPuzzles  bool
	LogLevel     string
	LogPretty    bool
}

// Load reads .env if present, then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading from environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "5175"),
		DatabaseURL:  getEnv("DATABASE_URL", "sqlite://./data/app.db"),
		JWTSecret:    getEnv("JWT_SECRET", devSecret),
		JWTTTL:       time.Duration(getEnvAsInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:   getEnv("COOKIE_NAME", "levels_token"),
		Production:   strings.EqualFold(getEnv("APP_ENV", "development"), "production"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		RoundTTL:     getEnvAsDuration("ROUND_TTL", 30*time.Minute),
		SweepEvery:   getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
		SeedPuzzles:  getEnvAsBool("SEED_PUZZLES", true),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("LOG_PRETTY", false),
	}
	if cfg.JWTSecret == devSecret {
		log.Warn().Msg("JWT_SECRET not set; using the development secret")
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
