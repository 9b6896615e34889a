package credential

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_MissingPasetoKey(t *testing.T) {
	t.Setenv("FOTOCOPIE_ACCESS_TOKEN_FORMAT", "paseto")
	t.Setenv("FOTOCOPIE_PASETO_V4_SECRET_KEY_HEX", "")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortJWTSecret(t *testing.T) {
	t.Setenv("FOTOCOPIE_ACCESS_TOKEN_FORMAT", "jwt")
	t.Setenv("FOTOCOPIE_JWT_SECRET", "short")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	t.Setenv("FOTOCOPIE_PASETO_V4_SECRET_KEY_HEX", NewPasetoV4SecretKeyHex())
	t.Setenv("FOTOCOPIE_AUTH_ACCESS_TTL", "-5m")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative duration, got %v", err)
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	t.Setenv("FOTOCOPIE_ACCESS_TOKEN_FORMAT", "JWT")
	t.Setenv("FOTOCOPIE_JWT_SECRET", strings.Repeat("k", 32))
	t.Setenv("FOTOCOPIE_AUTH_ISSUER", "fotocopie-test")
	t.Setenv("FOTOCOPIE_AUTH_ACCESS_TTL", "10m")
	t.Setenv("FOTOCOPIE_AUTH_CLOCK_SKEW", "20s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Format != FormatJWT {
		t.Fatalf("format mismatch: %q", cfg.Format)
	}
	if cfg.Issuer != "fotocopie-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.AccessTTL != 10*time.Minute || cfg.ClockSkew != 20*time.Second {
		t.Fatalf("durations mismatch: %+v", cfg)
	}
}
