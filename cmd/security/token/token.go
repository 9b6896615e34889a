package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "FOTOCOPIE_TOKEN_HMAC_KEY"

	// MinSecretBytes and MaxSecretBytes bound the entropy of generated secrets.
	MinSecretBytes = 16
	MaxSecretBytes = 64

	// MaxEncodedLen rejects pathological inputs before hashing.
	MaxEncodedLen = 512
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// HMACEnabled reports whether the env key is present (non-empty after trim).
func HMACEnabled() bool {
	return strings.TrimSpace(os.Getenv(HMACEnvKey)) != ""
}

// HashSecretHex hashes an opaque secret for server-side storage.
// HMAC-SHA256 is used when FOTOCOPIE_TOKEN_HMAC_KEY is set, SHA-256 otherwise.
func HashSecretHex(secret string) string {
	key := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if key == "" {
		return HashSHA256Hex(secret)
	}
	return HashHMACSHA256Hex(secret, []byte(key))
}

// NewOpaque returns a URL-safe random secret of nBytes entropy together with
// its storage hash. The plain secret must never be persisted.
func NewOpaque(nBytes int) (plain string, hashHex string, err error) {
	if nBytes < MinSecretBytes || nBytes > MaxSecretBytes {
		return "", "", ErrSecretSize
	}

	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, HashSecretHex(plain), nil
}

// Normalize trims a presented secret and reports whether it is worth hashing.
func Normalize(secret string) (string, bool) {
	secret = strings.TrimSpace(secret)
	if secret == "" || len(secret) > MaxEncodedLen {
		return "", false
	}
	return secret, true
}

// EqualHex64 compares two 64-char hex digests in constant time.
// Inputs of any other length never match.
func EqualHex64(a, b string) bool {
	if len(a) != 64 || len(b) != 64 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
