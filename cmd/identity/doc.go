// Package identity owns tenants (institutions) and their users.
//
// Every user belongs to exactly one tenant and carries a role. Logins are
// looked up by normalized username or email, both globally unique. Stores
// persist password hashes only; hashing lives in cmd/security/password.
package identity
