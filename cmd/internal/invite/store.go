package invite

import (
	"context"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
)

// Invite is an enrollment code bound to one tenant.
type Invite struct {
	ID        string
	TenantID  int64
	Role      identity.Role
	CreatedBy *string
	CreatedAt time.Time
	ExpiresAt time.Time
	MaxUses   int
	UsedCount int
	RevokedAt *time.Time
}

// Usable reports whether the invite can still enroll someone at now.
func (i Invite) Usable(now time.Time) bool {
	return i.RevokedAt == nil && i.ExpiresAt.After(now) && i.UsedCount < i.MaxUses
}

// OwnerTenant returns the tenant the invite enrolls into.
func (i Invite) OwnerTenant() int64 { return i.TenantID }

// Store is the persistence boundary for invites. Only code hashes are stored.
type Store interface {
	Create(ctx context.Context, inv Invite, codeHash string) error
	Get(ctx context.Context, id string) (Invite, error)

	// Consume atomically takes one use of a usable invite, or fails with ErrInvalidInvite.
	Consume(ctx context.Context, codeHash string, now time.Time) (Invite, error)

	// Release gives back a use taken by Consume when enrollment fails afterwards.
	Release(ctx context.Context, id string) error

	Revoke(ctx context.Context, id string, now time.Time) error
}
