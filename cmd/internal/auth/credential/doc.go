// Package credential encodes and verifies access credentials.
//
// An access credential is a short-lived, self-contained signed token carrying
// the user id, tenant id and role. Verification needs only the server-held
// key: no store is consulted, so a Codec is safe for concurrent use.
//
// Two formats are available: PASETO v4.public (Ed25519, default) and JWT
// signed with HS256.
package credential
