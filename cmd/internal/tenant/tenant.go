// Package tenant enforces tenant isolation. A Scope is only ever built from a
// verified authorization context, never from request parameters.
package tenant

import (
	"context"
	"errors"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/guard"
)

var (
	// ErrTenantMismatch covers both foreign and absent resources so callers
	// cannot probe other tenants.
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrForbidden is a role failure inside the caller's own tenant.
	ErrForbidden = errors.New("forbidden")

	// ErrNoScope means the request was not authenticated.
	ErrNoScope = errors.New("no tenant scope")
)

// Scope is the caller's identity within its tenant.
type Scope struct {
	UserID   string
	TenantID int64
	Role     identity.Role
}

// FromContext derives a Scope from the guard context.
func FromContext(ctx context.Context) (Scope, error) {
	c, ok := guard.FromContext(ctx)
	if !ok || c.TenantID <= 0 || c.UserID == "" {
		return Scope{}, ErrNoScope
	}
	return Scope{UserID: c.UserID, TenantID: c.TenantID, Role: c.Role}, nil
}

// Owns fails with ErrTenantMismatch unless resourceTenantID is the scope's tenant.
func (s Scope) Owns(resourceTenantID int64) error {
	if resourceTenantID != s.TenantID {
		return ErrTenantMismatch
	}
	return nil
}

// RequireRole fails with ErrForbidden unless the caller holds role.
func (s Scope) RequireRole(role identity.Role) error {
	if s.Role != role {
		return ErrForbidden
	}
	return nil
}

// IsSelf reports whether userID is the caller.
func (s Scope) IsSelf(userID string) bool { return s.UserID == userID }

// Owned is anything that belongs to a tenant.
type Owned interface {
	OwnerTenant() int64
}

// Load fetches id with find and checks ownership. find should return an
// error satisfying identity.IsNotFound for unknown ids. Absent and foreign
// resources are indistinguishable to the caller.
func Load[T Owned](ctx context.Context, s Scope, id string, find func(context.Context, string) (T, error)) (T, error) {
	var zero T
	v, err := find(ctx, id)
	if err != nil {
		if identity.IsNotFound(err) {
			return zero, ErrTenantMismatch
		}
		return zero, err
	}
	if err := s.Owns(v.OwnerTenant()); err != nil {
		return zero, err
	}
	return v, nil
}
