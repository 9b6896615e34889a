package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline used when no env overrides are present.
func DefaultConfig() Config {
	// Parallelism follows the CPU count, clamped to [1..4] for containers.
	threads := min(max(runtime.NumCPU(), 1), 4)

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
//   - FOTOCOPIE_PASSWORD_MIN_LEN
//   - FOTOCOPIE_PASSWORD_MAX_LEN
//   - FOTOCOPIE_PASSWORD_REJECT_VERY_WEAK (true/false)
//   - FOTOCOPIE_ARGON2_MEMORY_KIB
//   - FOTOCOPIE_ARGON2_ITERATIONS
//   - FOTOCOPIE_ARGON2_PARALLELISM
//   - FOTOCOPIE_ARGON2_SALT_LEN
//   - FOTOCOPIE_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	intVars := []struct {
		key      string
		min, max int
		dst      *int
	}{
		{"FOTOCOPIE_PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength},
		{"FOTOCOPIE_PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength},
	}
	for _, v := range intVars {
		raw, ok := os.LookupEnv(v.key)
		if !ok {
			continue
		}
		n, err := atoiRange(raw, v.min, v.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", v.key, err)
		}
		*v.dst = n
	}

	if raw, ok := os.LookupEnv("FOTOCOPIE_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := parseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("FOTOCOPIE_PASSWORD_REJECT_VERY_WEAK: %w", err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	u32Vars := []struct {
		key      string
		min, max uint32
		dst      *uint32
	}{
		{"FOTOCOPIE_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB},
		{"FOTOCOPIE_ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"FOTOCOPIE_ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"FOTOCOPIE_ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, v := range u32Vars {
		raw, ok := os.LookupEnv(v.key)
		if !ok {
			continue
		}
		u, err := atou32(raw, v.min, v.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", v.key, err)
		}
		*v.dst = u
	}

	if raw, ok := os.LookupEnv("FOTOCOPIE_ARGON2_PARALLELISM"); ok {
		u, err := atou32(raw, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("FOTOCOPIE_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- bounded above.
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	i64, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
