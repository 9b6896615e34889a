package client

import (
	"errors"
	"fmt"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
)

var (
	// ErrInvalidCredentials is a rejected login. It never triggers a refresh.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDeleted is terminal: local state was cleared without refreshing.
	ErrAccountDeleted = errors.New("account deleted")

	// ErrSessionExpired is a forced logout after a failed refresh. The
	// refresh failure is wrapped alongside it.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotLoggedIn means no session is stored.
	ErrNotLoggedIn = errors.New("not logged in")

	ErrTokenNotFound  = errors.New("refresh token not found")
	ErrTokenExpired   = errors.New("refresh token expired")
	ErrTokenRevoked   = errors.New("refresh token revoked")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrInvalidRequest = errors.New("invalid request")
)

var codeSentinels = map[string]error{
	httpjson.CodeInvalidCredentials: ErrInvalidCredentials,
	httpjson.CodeAccountDeleted:     ErrAccountDeleted,
	httpjson.CodeTokenNotFound:      ErrTokenNotFound,
	httpjson.CodeTokenExpired:       ErrTokenExpired,
	httpjson.CodeTokenRevoked:       ErrTokenRevoked,
	httpjson.CodeForbidden:          ErrForbidden,
	httpjson.CodeNotFound:           ErrNotFound,
	httpjson.CodeRateLimited:        ErrRateLimited,
	httpjson.CodeInvalidRequest:     ErrInvalidRequest,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s: %s", e.Status, e.Code, e.Message)
}

// Is matches the sentinel for e.Code, so errors.Is(err, ErrTokenRevoked) works.
func (e *APIError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

func apiError(status int, body []byte) *APIError {
	e, ok := httpjson.ReadError(body)
	if !ok {
		return &APIError{Status: status}
	}
	return &APIError{Status: status, Code: e.Code, Message: e.Message}
}

func sessionExpired(cause error) error {
	if cause == nil {
		return ErrSessionExpired
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}
