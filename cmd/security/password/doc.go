// Package password hashes and verifies user passwords.
//
// New hashes are Argon2id in PHC string form. Hashes produced by the legacy
// seeding scripts (bcrypt, "$2a$"/"$2b$"/"$2y$") still verify, and
// NeedsRehash reports when a stored hash should be upgraded after a
// successful login.
//
// Stored hashes are untrusted input: Verify refuses Argon2id parameters far
// above the configured cost.
package password
