package app

import (
	"errors"
	"fmt"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/token"
)

// minHMACKeyBytes is the shortest accepted FOTOCOPIE_TOKEN_HMAC_KEY.
const minHMACKeyBytes = 32

// ValidateSecurityConfig refuses to start when keyed refresh-secret hashing is
// required but not configured.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}
	if _, err := token.HMACKeyFromEnv(minHMACKeyBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return fmt.Errorf("%w: %s is required", ErrConfig, token.HMACEnvKey)
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return fmt.Errorf("%w: %s must be at least %d bytes", ErrConfig, token.HMACEnvKey, minHMACKeyBytes)
		default:
			return err
		}
	}
	if !token.HMACEnabled() {
		return fmt.Errorf("%w: refresh secrets are not hashed with HMAC", ErrConfig)
	}
	return nil
}
