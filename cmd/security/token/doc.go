// Package token provides opaque secret generation and hashing for refresh
// credentials and invite codes.
//
// Hashing modes:
//   - SHA-256(secret) when no HMAC key is configured (development).
//   - HMAC-SHA256(secret, key) when FOTOCOPIE_TOKEN_HMAC_KEY is set.
//
// Output is always 64 lowercase hex characters, which is what the stores
// index and compare.
package token
