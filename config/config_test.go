package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("unexpected backend base URL: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.UserID != "1" {
		t.Errorf("unexpected user id: %s", cfg.Backend.UserID)
	}
	if cfg.Marketplace.Host != "polymarket.com" {
		t.Errorf("unexpected marketplace host: %s", cfg.Marketplace.Host)
	}
	if cfg.Synthetic.Enabled {
		t.Error("synthetic mode should default to off")
	}
	if cfg.Cache.PinnedTTL != 60*time.Second {
		t.Errorf("unexpected pinned TTL: %s", cfg.Cache.PinnedTTL)
	}
	if cfg.Cache.AlertsTTL != 45*time.Second {
		t.Errorf("unexpected alerts TTL: %s", cfg.Cache.AlertsTTL)
	}
	if cfg.Cache.SnapshotTTL != 120*time.Second {
		t.Errorf("unexpected snapshot TTL: %s", cfg.Cache.SnapshotTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://backend:9000")
	t.Setenv("USE_SYNTHETIC_DATA", "true")
	t.Setenv("CACHE_PINNED_TTL", "90s")
	t.Setenv("API_SERVER_PORT", "9999")
	t.Setenv("API_ALLOWED_ORIGINS", "chrome-extension://abc, http://localhost:5173")

	cfg := Load()

	if cfg.Backend.BaseURL != "http://backend:9000" {
		t.Errorf("env override not applied: %s", cfg.Backend.BaseURL)
	}
	if !cfg.Synthetic.Enabled {
		t.Error("expected synthetic mode enabled")
	}
	if cfg.Cache.PinnedTTL != 90*time.Second {
		t.Errorf("unexpected pinned TTL: %s", cfg.Cache.PinnedTTL)
	}
	if cfg.APIServer.Port != 9999 {
		t.Errorf("unexpected port: %d", cfg.APIServer.Port)
	}
	if len(cfg.APIServer.AllowedOrigins) != 2 {
		t.Errorf("unexpected origins: %v", cfg.APIServer.AllowedOrigins)
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := Load()
	result := cfg.Validate()
	if !result.Valid {
		t.Errorf("default config should validate, got errors: %v", result.Errors)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := Load()
	cfg.Backend.BaseURL = ""
	cfg.APIServer.Port = 0
	cfg.Cache.AlertsTTL = 0

	result := cfg.Validate()
	if result.Valid {
		t.Fatal("expected validation to fail")
	}
	if len(result.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(result.Errors), result.Errors)
	}
}
