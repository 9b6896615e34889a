package session

import "errors"

var (
	// ErrTokenNotFound is returned when a refresh secret matches no record.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenExpired is returned when the record's expiry has passed.
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrTokenRevoked is returned when the record was rotated or revoked.
	ErrTokenRevoked = errors.New("refresh token revoked")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
