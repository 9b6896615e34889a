package session

import (
	"context"
	"time"
)

// Revocation reasons recorded on revoked records.
const (
	ReasonRotation      = "rotation"
	ReasonLogout        = "logout"
	ReasonAccountDelete = "account_deleted"
	ReasonTenantDelete  = "tenant_deleted"
)

// Record mirrors a refresh_credentials row.
type Record struct {
	ID               string
	UserID           string
	SecretHash       string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	ReplacedBy       *string
	RevocationReason *string
}

// Active reports whether the record can still be rotated at now.
func (r Record) Active(now time.Time) bool {
	return r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// check applies the rotation preconditions in their fixed order.
func (r Record) check(now time.Time) error {
	if r.RevokedAt != nil {
		return ErrTokenRevoked
	}
	if !r.ExpiresAt.After(now) {
		return ErrTokenExpired
	}
	return nil
}

// Store persists refresh credentials.
//
// Rotate is the only compound operation: implementations must make the
// lookup, checks, successor insert and predecessor revoke a single atomic
// step with respect to other Rotate and Revoke calls on the same record.
type Store interface {
	// Create inserts a new active record.
	Create(ctx context.Context, rec Record) error

	// GetByHash loads a record by secret hash.
	GetByHash(ctx context.Context, secretHash string) (Record, error)

	// Rotate revokes the record matching oldHash and inserts next for the same owner.
	// next.UserID is ignored and taken from the predecessor. Returns the stored successor.
	Rotate(ctx context.Context, now time.Time, oldHash string, next Record) (Record, error)

	// Revoke marks a record revoked. Unknown or already revoked records are a no-op.
	Revoke(ctx context.Context, now time.Time, secretHash string, reason string) error

	// RevokeAllForUsers revokes every active record owned by userIDs and reports how many changed.
	RevokeAllForUsers(ctx context.Context, now time.Time, userIDs []string, reason string) (int64, error)

	// PurgeExpired deletes records that expired before the cutoff.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
