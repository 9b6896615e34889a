package credential

import "errors"

var (
	// ErrMissingCredential is returned when no credential was presented.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidCredential is returned when signature, format, issuer or claims do not verify.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrCredentialExpired is returned for an authentic credential past its expiry.
	ErrCredentialExpired = errors.New("credential expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid credential config")
)
