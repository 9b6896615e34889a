package issuer

import "errors"

var (
	// ErrInvalidCredentials covers unknown identifiers and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDeleted means the credential outlived its user or tenant.
	ErrAccountDeleted = errors.New("account deleted")
)
