package api

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadConfigFromEnv()
	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("got %+v want %+v", cfg, def)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("FOTOCOPIE_AUTH_TRUST_PROXY", "true")
	t.Setenv("FOTOCOPIE_LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("FOTOCOPIE_LOGIN_WINDOW", "2m")
	t.Setenv("FOTOCOPIE_INVITE_TTL", "1000h")
	t.Setenv("FOTOCOPIE_INVITE_TTL_MAX", "48h")
	t.Setenv("FOTOCOPIE_AUTH_MAX_BODY_BYTES", "-5")

	cfg := LoadConfigFromEnv()
	if !cfg.TrustProxy {
		t.Fatalf("expected TrustProxy")
	}
	if l := cfg.LoginLimits(); l.MaxAttempts != 3 || l.Window != 2*time.Minute {
		t.Fatalf("unexpected login limits %+v", l)
	}
	if cfg.InviteTTL != 48*time.Hour {
		t.Fatalf("invite ttl not clamped: %v", cfg.InviteTTL)
	}
	if cfg.MaxBodyBytes != DefaultConfig().MaxBodyBytes {
		t.Fatalf("negative body size accepted: %d", cfg.MaxBodyBytes)
	}
}
