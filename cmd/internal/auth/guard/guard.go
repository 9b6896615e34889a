// Package guard validates bearer access credentials on incoming requests and
// carries the resulting authorization context. It never touches storage.
package guard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/credential"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
)

// Context is the authorization context derived from a verified credential.
type Context struct {
	UserID    string
	TenantID  int64
	Role      identity.Role
	ExpiresAt time.Time
}

type ctxKey struct{}

// WithContext returns ctx carrying c.
func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the authorization context stored by Middleware.
func FromContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(Context)
	return c, ok
}

// Validator is stateless apart from its codec and clock.
type Validator struct {
	codec credential.Codec
	now   func() time.Time
}

// NewValidator builds a Validator. now defaults to time.Now.
func NewValidator(codec credential.Codec, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{codec: codec, now: now}
}

// Authorize verifies a raw access credential.
func (v *Validator) Authorize(token string) (Context, error) {
	claims, err := v.codec.Verify(token, v.now())
	if err != nil {
		return Context{}, err
	}
	return Context{
		UserID:    claims.UserID,
		TenantID:  claims.TenantID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Middleware rejects requests without a valid bearer credential with 401.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := v.Authorize(BearerToken(r))
		if err != nil {
			code, msg := Describe(err)
			httpjson.WriteUnauthorized(w, code, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), c)))
	})
}

// Wrap is Middleware for a HandlerFunc.
func (v *Validator) Wrap(fn http.HandlerFunc) http.Handler {
	return v.Middleware(fn)
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// Any other scheme counts as absent.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// Describe maps a codec error to its wire code and message.
func Describe(err error) (code, msg string) {
	switch {
	case errors.Is(err, credential.ErrMissingCredential):
		return httpjson.CodeMissingCredential, "missing bearer credential"
	case errors.Is(err, credential.ErrCredentialExpired):
		return httpjson.CodeCredentialExpired, "access credential expired"
	default:
		return httpjson.CodeInvalidCredential, "invalid access credential"
	}
}
