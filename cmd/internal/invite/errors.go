package invite

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidInvite covers unknown, expired, revoked and exhausted codes.
	ErrInvalidInvite = errors.New("invalid or expired invite")
)
