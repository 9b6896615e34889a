// Package session persists refresh credentials and rotates them.
//
// A refresh credential is an opaque random secret handed to the client once;
// only its hash is stored. Every successful refresh rotates it: the
// presented record is revoked and a successor is inserted in the same
// transaction, so two concurrent rotations of one secret can never both
// succeed. The loser observes ErrTokenRevoked.
//
// Access credentials are not handled here; see package credential.
package session
