// Package directory manages the users of the caller's tenant. Every operation
// takes a tenant.Scope and re-reads the caller first, so a deleted account is
// reported as such instead of acting on stale claims.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/issuer"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/session"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/tenant"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/password"
)

// Profile is the caller together with its tenant.
type Profile struct {
	User   identity.User
	Tenant identity.Tenant
}

// CreateInput adds a user to the caller's tenant.
type CreateInput struct {
	Username *string
	Email    *string
	Role     identity.Role
	Password string
}

// UpdateInput patches a user. Nil fields are untouched.
type UpdateInput struct {
	Username *string
	Email    *string
	Role     *identity.Role
	Password *string
}

// Service is safe for concurrent use.
type Service struct {
	users     identity.Store
	sessions  *session.Service
	passwords password.Config
	log       *slog.Logger
	now       func() time.Time
}

// New builds a Service. now defaults to time.Now in UTC.
func New(users identity.Store, sessions *session.Service, pw password.Config, log *slog.Logger, now func() time.Time) *Service {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{users: users, sessions: sessions, passwords: pw, log: log, now: now}
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context, sc tenant.Scope) (Profile, error) {
	actor, _, err := s.actor(ctx, sc)
	if err != nil {
		return Profile{}, err
	}
	t, err := s.users.GetTenant(ctx, actor.TenantID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Profile{}, issuer.ErrAccountDeleted
		}
		return Profile{}, err
	}
	return Profile{User: actor, Tenant: t}, nil
}

// List pages through the tenant's users. Admin only.
func (s *Service) List(ctx context.Context, sc tenant.Scope, q identity.ListUsersQuery) (identity.UserPage, error) {
	if _, err := s.admin(ctx, sc); err != nil {
		return identity.UserPage{}, err
	}
	return s.users.ListUsers(ctx, sc.TenantID, q)
}

// Get returns one user of the tenant. Admins may read anyone, others only themselves.
func (s *Service) Get(ctx context.Context, sc tenant.Scope, id string) (identity.User, error) {
	_, sc, err := s.actor(ctx, sc)
	if err != nil {
		return identity.User{}, err
	}
	if !sc.IsSelf(id) {
		if err := sc.RequireRole(identity.RoleAdmin); err != nil {
			return identity.User{}, err
		}
	}
	return tenant.Load(ctx, sc, id, s.users.GetUser)
}

// Create adds a user to the tenant. Admin only. Role defaults to collaborator.
func (s *Service) Create(ctx context.Context, sc tenant.Scope, in CreateInput) (identity.User, error) {
	if _, err := s.admin(ctx, sc); err != nil {
		return identity.User{}, err
	}
	if in.Role == "" {
		in.Role = identity.RoleCollaborator
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return identity.User{}, err
	}

	u, err := s.users.CreateUser(ctx, identity.CreateUserInput{
		TenantID: sc.TenantID,
		User: identity.NewUser{
			Username:     in.Username,
			Email:        in.Email,
			Role:         in.Role,
			PasswordHash: hash,
		},
		Now: s.now(),
	})
	if err != nil {
		return identity.User{}, err
	}
	s.log.Info("directory.user.created", "tenant_id", sc.TenantID, "user_id", u.ID, "by", sc.UserID)
	return u, nil
}

// Update patches a user of the tenant. Admin only; admins cannot change their own role.
func (s *Service) Update(ctx context.Context, sc tenant.Scope, id string, in UpdateInput) (identity.User, error) {
	sc, err := s.admin(ctx, sc)
	if err != nil {
		return identity.User{}, err
	}
	target, err := tenant.Load(ctx, sc, id, s.users.GetUser)
	if err != nil {
		return identity.User{}, err
	}
	if in.Role != nil && sc.IsSelf(target.ID) && *in.Role != target.Role {
		return identity.User{}, fmt.Errorf("%w: cannot change own role", tenant.ErrForbidden)
	}

	upd := identity.UpdateUserInput{Username: in.Username, Email: in.Email, Role: in.Role, Now: s.now()}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return identity.User{}, err
		}
		upd.PasswordHash = &hash
	}
	return s.users.UpdateUser(ctx, target.ID, upd)
}

// Delete revokes a user's refresh credentials and removes the user. Admin
// only; self-deletion is refused.
func (s *Service) Delete(ctx context.Context, sc tenant.Scope, id string) error {
	sc, err := s.admin(ctx, sc)
	if err != nil {
		return err
	}
	if sc.IsSelf(id) {
		return fmt.Errorf("%w: cannot delete own account", tenant.ErrForbidden)
	}
	target, err := tenant.Load(ctx, sc, id, s.users.GetUser)
	if err != nil {
		return err
	}

	if _, err := s.sessions.RevokeUsers(ctx, s.now(), []string{target.ID}, session.ReasonAccountDelete); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, target.ID); err != nil {
		if identity.IsNotFound(err) {
			return tenant.ErrTenantMismatch
		}
		return err
	}
	s.log.Info("directory.user.deleted", "tenant_id", sc.TenantID, "user_id", target.ID, "by", sc.UserID)
	return nil
}

// DeleteTenant revokes every refresh credential in the tenant and deletes it
// with all its users. Admin only.
func (s *Service) DeleteTenant(ctx context.Context, sc tenant.Scope) error {
	sc, err := s.admin(ctx, sc)
	if err != nil {
		return err
	}
	ids, err := s.users.ListUserIDs(ctx, sc.TenantID)
	if err != nil {
		return err
	}
	n, err := s.sessions.RevokeUsers(ctx, s.now(), ids, session.ReasonTenantDelete)
	if err != nil {
		return err
	}
	if err := s.users.DeleteTenant(ctx, sc.TenantID); err != nil {
		if identity.IsNotFound(err) {
			return issuer.ErrAccountDeleted
		}
		return err
	}
	s.log.Info("directory.tenant.deleted", "tenant_id", sc.TenantID, "users", len(ids), "revoked", n, "by", sc.UserID)
	return nil
}

// actor reloads the caller. The stored role replaces the claimed one, which
// may be up to one access TTL old.
func (s *Service) actor(ctx context.Context, sc tenant.Scope) (identity.User, tenant.Scope, error) {
	u, err := s.users.GetUser(ctx, sc.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, sc, issuer.ErrAccountDeleted
		}
		return identity.User{}, sc, err
	}
	if u.TenantID != sc.TenantID {
		return identity.User{}, sc, issuer.ErrAccountDeleted
	}
	sc.Role = u.Role
	return u, sc, nil
}

func (s *Service) admin(ctx context.Context, sc tenant.Scope) (tenant.Scope, error) {
	_, sc, err := s.actor(ctx, sc)
	if err != nil {
		return sc, err
	}
	return sc, sc.RequireRole(identity.RoleAdmin)
}

func (s *Service) hash(plain string) (string, error) {
	if err := s.passwords.Validate(plain); err != nil {
		return "", err
	}
	return s.passwords.Hash(plain)
}
