package credential

import (
	"os"
	"strings"
	"time"
)

// Format selects the wire format of access credentials.
type Format string

const (
	FormatPaseto Format = "paseto"
	FormatJWT    Format = "jwt"
)

// Config controls access-credential issuance and verification.
type Config struct {
	Format Format

	// Issuer is written to and required in the "iss" claim.
	Issuer string

	// AccessTTL is the lifetime of an access credential.
	AccessTTL time.Duration

	// ClockSkew is tolerated on the not-before check. Expiry is exact.
	ClockSkew time.Duration

	// PasetoV4SecretKeyHex is the hex Ed25519 secret key for FormatPaseto.
	PasetoV4SecretKeyHex string

	// JWTSecret is the HMAC key for FormatJWT (at least 32 bytes).
	JWTSecret string
}

const minJWTSecretBytes = 32

// DefaultConfig returns defaults without key material.
func DefaultConfig() Config {
	return Config{
		Format:    FormatPaseto,
		Issuer:    "gestione-fotocopie",
		AccessTTL: 15 * time.Minute,
		ClockSkew: 30 * time.Second,
	}
}

// LoadConfigFromEnv loads codec configuration.
//
// Keys:
//   - FOTOCOPIE_ACCESS_TOKEN_FORMAT (paseto|jwt)
//   - FOTOCOPIE_PASETO_V4_SECRET_KEY_HEX (required for paseto)
//   - FOTOCOPIE_JWT_SECRET (required for jwt)
//   - FOTOCOPIE_AUTH_ISSUER, FOTOCOPIE_AUTH_ACCESS_TTL, FOTOCOPIE_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("FOTOCOPIE_ACCESS_TOKEN_FORMAT")); v != "" {
		cfg.Format = Format(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("FOTOCOPIE_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("FOTOCOPIE_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}
	if v := os.Getenv("FOTOCOPIE_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.PasetoV4SecretKeyHex = strings.TrimSpace(os.Getenv("FOTOCOPIE_PASETO_V4_SECRET_KEY_HEX"))
	cfg.JWTSecret = os.Getenv("FOTOCOPIE_JWT_SECRET")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the key material matches the selected format.
func (c Config) Validate() error {
	if c.AccessTTL <= 0 || c.ClockSkew < 0 || c.ClockSkew >= c.AccessTTL {
		return ErrConfig
	}
	switch c.Format {
	case FormatPaseto:
		if c.PasetoV4SecretKeyHex == "" {
			return ErrConfig
		}
	case FormatJWT:
		if len(c.JWTSecret) < minJWTSecretBytes {
			return ErrConfig
		}
	default:
		return ErrConfig
	}
	return nil
}
