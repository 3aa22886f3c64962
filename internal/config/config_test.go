package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "JWT_SECRET", "JWT_EXPIRES_DAYS", "APP_ENV", "ROUND_TTL", "SEED_PUZZLES"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Port != "5175" || cfg.DatabaseURL != "sqlite://./data/app.db" || cfg.CookieName != "levels_token" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.JWTSecret != devSecret || cfg.JWTTTL != 14*24*time.Hour || cfg.Production {
		t.Fatalf("unexpected auth defaults: %+v", cfg)
	}
	if cfg.RoundTTL != 30*time.Minute || cfg.SweepEvery != 5*time.Minute || !cfg.SeedPuzzles {
		t.Fatalf("unexpected round defaults: %+v", cfg)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("JWT_EXPIRES_DAYS", "2")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ROUND_TTL", "90s")
	t.Setenv("SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("SEED_PUZZLES", "false")

	cfg := FromEnv()
	if cfg.Port != "9000" || cfg.DatabaseURL != "memory://" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.JWTTTL != 48*time.Hour || !cfg.Production {
		t.Fatalf("auth cfg = %+v", cfg)
	}
	if cfg.RoundTTL != 90*time.Second || cfg.SweepEvery != 5*time.Minute || cfg.SeedPuzzles {
		t.Fatalf("round cfg = %+v", cfg)
	}
}
