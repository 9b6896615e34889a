package password

import (
	"os"
	"testing"
)

var envKeys = []string{
	"FOTOCOPIE_PASSWORD_MIN_LEN",
	"FOTOCOPIE_PASSWORD_MAX_LEN",
	"FOTOCOPIE_PASSWORD_REJECT_VERY_WEAK",
	"FOTOCOPIE_ARGON2_MEMORY_KIB",
	"FOTOCOPIE_ARGON2_ITERATIONS",
	"FOTOCOPIE_ARGON2_PARALLELISM",
	"FOTOCOPIE_ARGON2_SALT_LEN",
	"FOTOCOPIE_ARGON2_KEY_LEN",
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Policy != def.Policy {
		t.Fatalf("policy mismatch: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != def.Params.MemoryKiB {
		t.Fatalf("memory mismatch")
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("FOTOCOPIE_PASSWORD_MIN_LEN", "10")
	t.Setenv("FOTOCOPIE_PASSWORD_MAX_LEN", "200")
	t.Setenv("FOTOCOPIE_PASSWORD_REJECT_VERY_WEAK", "on")
	t.Setenv("FOTOCOPIE_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("FOTOCOPIE_ARGON2_ITERATIONS", "4")
	t.Setenv("FOTOCOPIE_ARGON2_PARALLELISM", "2")
	t.Setenv("FOTOCOPIE_ARGON2_SALT_LEN", "24")
	t.Setenv("FOTOCOPIE_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"min above max": {"FOTOCOPIE_PASSWORD_MIN_LEN": "20", "FOTOCOPIE_PASSWORD_MAX_LEN": "10"},
		"memory floor":  {"FOTOCOPIE_ARGON2_MEMORY_KIB": "1024"},
		"bad bool":      {"FOTOCOPIE_PASSWORD_REJECT_VERY_WEAK": "maybe"},
		"parallelism":   {"FOTOCOPIE_ARGON2_PARALLELISM": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
