package session

import (
	"os"
	"strconv"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/token"
)

// Config controls refresh-credential lifetime and entropy.
type Config struct {
	// RefreshTTL is the lifetime of every refresh credential, including rotated successors.
	RefreshTTL time.Duration

	// RefreshTokenBytes is the entropy of generated secrets.
	RefreshTokenBytes int

	// Retention keeps expired records around this long before PurgeExpired removes them.
	Retention time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RefreshTTL:        7 * 24 * time.Hour,
		RefreshTokenBytes: 32,
		Retention:         24 * time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration.
//
// Optional (durations must be valid Go duration strings):
//   - FOTOCOPIE_AUTH_REFRESH_TTL
//   - FOTOCOPIE_AUTH_REFRESH_TOKEN_BYTES (32..64)
//   - FOTOCOPIE_JANITOR_RETENTION
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("FOTOCOPIE_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	if v := os.Getenv("FOTOCOPIE_AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > token.MaxSecretBytes {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	if v := os.Getenv("FOTOCOPIE_JANITOR_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.Retention = d
	}

	return cfg, nil
}

// CheckAccessTTL enforces that access credentials are much shorter lived than refresh credentials.
func (c Config) CheckAccessTTL(access time.Duration) error {
	if access <= 0 || access*4 > c.RefreshTTL {
		return ErrConfig
	}
	return nil
}
