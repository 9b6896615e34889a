package app

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"FOTOCOPIE_ENV", "FOTOCOPIE_DATABASE_URL", "FOTOCOPIE_DB_SCHEMA", "FOTOCOPIE_JANITOR_INTERVAL", "FOTOCOPIE_CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" || cfg.DBSchema != "fotocopie" || cfg.JanitorInterval != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Production() || cfg.RequireTokenHMAC {
		t.Fatalf("development defaults expected")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("FOTOCOPIE_ENV", "")
	t.Setenv("FOTOCOPIE_DB_SCHEMA", "fotocopie_test")
	t.Setenv("FOTOCOPIE_JANITOR_INTERVAL", "0")
	t.Setenv("FOTOCOPIE_CORS_ALLOWED_ORIGINS", " https://a.example.it, ,http://127.0.0.1:* ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBSchema != "fotocopie_test" || cfg.JanitorInterval != 0 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if got := strings.Join(cfg.CORSAllowedOrigins, "|"); got != "https://a.example.it|http://127.0.0.1:*" {
		t.Fatalf("origins=%q", got)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad schema":         {"FOTOCOPIE_DB_SCHEMA": "drop table;"},
		"production no db":   {"FOTOCOPIE_ENV": "production", "FOTOCOPIE_DATABASE_URL": ""},
		"wildcard with cred": {"FOTOCOPIE_CORS_ALLOWED_ORIGINS": "*", "FOTOCOPIE_CORS_ALLOW_CREDENTIALS": "true"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig_ProductionTightensPolicy(t *testing.T) {
	t.Setenv("FOTOCOPIE_ENV", "production")
	t.Setenv("FOTOCOPIE_DATABASE_URL", "postgres://localhost/fotocopie")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.RequireTokenHMAC || !cfg.ReadinessRequireDB {
		t.Fatalf("production must require HMAC and DB readiness: %+v", cfg)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	cfg := Config{RequireTokenHMAC: true}

	t.Setenv("FOTOCOPIE_TOKEN_HMAC_KEY", "")
	if err := ValidateSecurityConfig(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("missing key: expected ErrConfig, got %v", err)
	}

	t.Setenv("FOTOCOPIE_TOKEN_HMAC_KEY", "short")
	if err := ValidateSecurityConfig(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("short key: expected ErrConfig, got %v", err)
	}

	t.Setenv("FOTOCOPIE_TOKEN_HMAC_KEY", strings.Repeat("k", 32))
	if err := ValidateSecurityConfig(cfg); err != nil {
		t.Fatalf("valid key: %v", err)
	}

	if err := ValidateSecurityConfig(Config{}); err != nil {
		t.Fatalf("policy off: %v", err)
	}
}
