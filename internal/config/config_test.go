package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("PREDICTION_TTL_SECONDS", "")
	t.Setenv("ROI_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token ttl 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.PredictionTTLSeconds != 300 {
		t.Fatalf("expected default prediction ttl 300, got %d", cfg.PredictionTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected address :8080, got %q", cfg.Address())
	}
}

func TestLoadRejectsBadTTLValues(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "not-a-number")
	t.Setenv("ROI_TTL_SECONDS", "-5")

	cfg := Load()
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected fallback token ttl 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.ROITTLSeconds != 60 {
		t.Fatalf("expected fallback roi ttl 60, got %d", cfg.ROITTLSeconds)
	}
}

func TestIsProduction(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	if !Load().IsProduction() {
		t.Fatalf("expected production env to be detected case-insensitively")
	}
}
