package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Render.Scale != 3 {
		t.Fatalf("expected default scale 3, got %d", cfg.Render.Scale)
	}
	if cfg.Share.MessengerBaseURL != "https://wa.me/" {
		t.Fatalf("expected whatsapp base url, got %q", cfg.Share.MessengerBaseURL)
	}
	if cfg.Share.DraftTTL != 2*time.Hour {
		t.Fatalf("expected draft ttl 2h, got %v", cfg.Share.DraftTTL)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("RENDER_SCALE", "2")
	t.Setenv("DOWNLOAD_TTL", "90s")
	t.Setenv("APP_BASE_URL", "https://cards.example.com/")
	t.Setenv("RENDER_BRAND", "   ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Render.Scale != 2 {
		t.Fatalf("expected scale 2, got %d", cfg.Render.Scale)
	}
	if cfg.Share.DownloadTTL != 90*time.Second {
		t.Fatalf("expected download ttl 90s, got %v", cfg.Share.DownloadTTL)
	}
	if cfg.Share.BaseURL != "https://cards.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Share.BaseURL)
	}
	if cfg.Render.Brand != "Vytal" {
		t.Fatalf("expected blank brand to fall back, got %q", cfg.Render.Brand)
	}
}

func TestLoad_InvalidScale(t *testing.T) {
	t.Setenv("RENDER_SCALE", "9")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range scale")
	}
}

func TestGetEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("DRAFT_TTL", "soon")
	if got := getEnvDuration("DRAFT_TTL", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestDSNAndAddr(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 1, DBName: "n", SSLMode: "disable"}
	if got := d.DSN(); got != "postgres://u:p@h:1/n?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}
	r := RedisConfig{Host: "r", Port: 2}
	if got := r.Addr(); got != "r:2" {
		t.Fatalf("unexpected addr %q", got)
	}
}

func TestLoad_PoolBounds(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIN_CONNS", "8")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when min conns exceed max conns")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "cards", SSLMode: "require"}
	if got := d.DSN(); got != "postgres://u:p@db:5433/cards?sslmode=require" {
		t.Fatalf("unexpected dsn %q", got)
	}
}
