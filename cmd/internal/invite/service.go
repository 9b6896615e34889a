// Package invite lets tenant administrators hand out enrollment codes. A
// code enrolls new users into the issuing tenant with a fixed role.
package invite

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity/ids"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/issuer"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/tenant"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/password"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/token"
)

// Limits bounds what an administrator may request.
type Limits struct {
	DefaultTTL     time.Duration
	MaxTTL         time.Duration
	DefaultMaxUses int
	MaxUses        int
	CodeBytes      int
}

// DefaultLimits returns 7 day single-use codes, capped at 30 days and 100 uses.
func DefaultLimits() Limits {
	return Limits{
		DefaultTTL:     7 * 24 * time.Hour,
		MaxTTL:         30 * 24 * time.Hour,
		DefaultMaxUses: 1,
		MaxUses:        100,
		CodeBytes:      token.MinSecretBytes,
	}
}

// CreateInput describes a new invite. Zero values take the defaults.
type CreateInput struct {
	TTL     time.Duration
	MaxUses int
}

// AcceptInput enrolls a new user with an invite code.
type AcceptInput struct {
	Code     string
	Username *string
	Email    *string
	Password string
}

// Service manages invite creation and enrollment.
type Service struct {
	store     Store
	users     identity.Store
	passwords password.Config
	limits    Limits
	log       *slog.Logger
	now       func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(s *Service) { s.limits = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, users identity.Store, pw password.Config, opts ...Option) (*Service, error) {
	if store == nil || users == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store:     store,
		users:     users,
		passwords: pw,
		limits:    DefaultLimits(),
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Create issues an invite for the caller's tenant and returns it with its
// plain code. The code is shown once. Admin only.
func (s *Service) Create(ctx context.Context, sc tenant.Scope, in CreateInput) (Invite, string, error) {
	if err := s.requireAdmin(ctx, sc); err != nil {
		return Invite{}, "", err
	}

	now := s.now()
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.limits.DefaultTTL
	}
	ttl = min(ttl, s.limits.MaxTTL)
	maxUses := in.MaxUses
	if maxUses <= 0 {
		maxUses = s.limits.DefaultMaxUses
	}
	maxUses = min(maxUses, s.limits.MaxUses)

	code, hash, err := token.NewOpaque(s.limits.CodeBytes)
	if err != nil {
		return Invite{}, "", err
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Invite{}, "", err
	}

	createdBy := sc.UserID
	inv := Invite{
		ID:        id,
		TenantID:  sc.TenantID,
		Role:      identity.RoleCollaborator,
		CreatedBy: &createdBy,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		MaxUses:   maxUses,
	}
	if err := s.store.Create(ctx, inv, hash); err != nil {
		return Invite{}, "", err
	}
	return inv, code, nil
}

// Revoke disables an invite of the caller's tenant. Admin only.
func (s *Service) Revoke(ctx context.Context, sc tenant.Scope, id string) error {
	if err := s.requireAdmin(ctx, sc); err != nil {
		return err
	}
	inv, err := tenant.Load(ctx, sc, id, s.store.Get)
	if err != nil {
		return err
	}
	return s.store.Revoke(ctx, inv.ID, s.now())
}

// Accept consumes one use of the code and creates the user in the invite's
// tenant. If user creation fails the use is given back.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (identity.User, error) {
	code, ok := token.Normalize(in.Code)
	if !ok {
		return identity.User{}, ErrInvalidInvite
	}
	if err := s.passwords.Validate(in.Password); err != nil {
		return identity.User{}, err
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return identity.User{}, err
	}

	now := s.now()
	inv, err := s.store.Consume(ctx, token.HashSecretHex(code), now)
	if err != nil {
		return identity.User{}, err
	}

	u, err := s.users.CreateUser(ctx, identity.CreateUserInput{
		TenantID: inv.TenantID,
		User: identity.NewUser{
			Username:     in.Username,
			Email:        in.Email,
			Role:         inv.Role,
			PasswordHash: hash,
		},
		Now: now,
	})
	if err != nil {
		if rerr := s.store.Release(context.WithoutCancel(ctx), inv.ID); rerr != nil {
			s.log.Error("invite.release.fail", "invite_id", inv.ID, "err", rerr)
		}
		if identity.IsNotFound(err) {
			// Tenant deleted after the invite was issued.
			return identity.User{}, ErrInvalidInvite
		}
		return identity.User{}, err
	}

	s.log.Info("invite.accepted", "invite_id", inv.ID, "tenant_id", inv.TenantID, "user_id", u.ID)
	return u, nil
}

func (s *Service) requireAdmin(ctx context.Context, sc tenant.Scope) error {
	actor, err := s.users.GetUser(ctx, sc.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return issuer.ErrAccountDeleted
		}
		return err
	}
	if actor.TenantID != sc.TenantID {
		return issuer.ErrAccountDeleted
	}
	if actor.Role != identity.RoleAdmin {
		return tenant.ErrForbidden
	}
	return nil
}

// IsInvalid reports whether err means the code cannot be used.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalidInvite) }
