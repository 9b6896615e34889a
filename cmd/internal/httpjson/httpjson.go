// Package httpjson holds the JSON envelope shared by every HTTP surface:
// success bodies, the {"error":{"code","message"}} error shape, its stable
// codes, and strict request decoding with struct-tag validation.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Stable error codes. Clients branch on these, never on messages.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingCredential  = "missing_credential"
	CodeInvalidCredential  = "invalid_credential"
	CodeCredentialExpired  = "credential_expired"
	CodeTokenNotFound      = "token_not_found"
	CodeTokenExpired       = "token_expired"
	CodeTokenRevoked       = "token_revoked"
	CodeAccountDeleted     = "account_deleted"
	CodeNotFound           = "not_found"
	CodeForbidden          = "forbidden"
	CodeConflict           = "conflict"
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidInvite      = "invalid_invite"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
)

// DefaultMaxBody bounds request bodies.
const DefaultMaxBody = 1 << 20

// Error is the error object inside an ErrorResponse.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error Error `json:"error"`
}

// WriteJSON writes v with status and disables caching.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: Error{Code: code, Message: msg}})
}

// WriteUnauthorized writes a 401 with a Bearer challenge.
func WriteUnauthorized(w http.ResponseWriter, code, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="fotocopie", error="`+code+`"`)
	WriteError(w, http.StatusUnauthorized, code, msg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads exactly one JSON object into dst, rejecting unknown fields and
// trailing data, then validates dst's struct tags.
func Decode(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return Validate(dst)
}

// Validate runs struct-tag validation and flattens failures into one message.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: failed %q", fieldName(fe), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

// ReadError decodes an error envelope from a response body. ok is false
// when the body is not an envelope.
func ReadError(body []byte) (Error, bool) {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error.Code == "" {
		return Error{}, false
	}
	return er.Error, true
}
