// Package issuer mints sessions: a signed access credential paired with an
// opaque refresh secret. It owns login, registration, refresh and logout.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/credential"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/session"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/ratelimit"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/password"
)

const dummyPassword = "dummy-password-for-timing-only"

// Result is an issued session together with its owner.
type Result struct {
	User   identity.User
	Tenant identity.Tenant

	AccessToken     string
	AccessExpiresAt time.Time

	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginInput identifies a login attempt. IP is only used for throttling.
type LoginInput struct {
	Identifier string
	Password   string
	IP         string
}

// RegisterInput creates a tenant with its first administrator.
type RegisterInput struct {
	TenantName string
	TenantCode string
	Username   *string
	Email      *string
	Password   string
}

// Issuer is safe for concurrent use.
type Issuer struct {
	users     identity.Store
	sessions  *session.Service
	codec     credential.Codec
	passwords password.Config
	limiter   *ratelimit.LoginLimiter

	log       *slog.Logger
	now       func() time.Time
	dummyHash string
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithLimiter enables login throttling.
func WithLimiter(l *ratelimit.LoginLimiter) Option {
	return func(i *Issuer) { i.limiter = l }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(i *Issuer) {
		if log != nil {
			i.log = log
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// New builds an Issuer. It hashes a dummy password up front so failed
// lookups cost the same as failed verifications.
func New(users identity.Store, sessions *session.Service, codec credential.Codec, pw password.Config, opts ...Option) (*Issuer, error) {
	if users == nil || sessions == nil || codec == nil {
		return nil, errors.New("issuer: missing dependency")
	}
	i := &Issuer{
		users:     users,
		sessions:  sessions,
		codec:     codec,
		passwords: pw,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}

	hash, err := pw.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("issuer: dummy hash: %w", err)
	}
	i.dummyHash = hash
	return i, nil
}

// Passwords exposes the password configuration so enrollment flows hash the same way.
func (i *Issuer) Passwords() password.Config { return i.passwords }

// Now returns the issuer's clock reading.
func (i *Issuer) Now() time.Time { return i.now() }

// Login verifies a username or email and password and opens a session.
// Unknown identifiers and wrong passwords both yield ErrInvalidCredentials.
func (i *Issuer) Login(ctx context.Context, in LoginInput) (Result, error) {
	login := identity.NormalizeLogin(in.Identifier)
	if login == "" || in.Password == "" {
		return Result{}, ErrInvalidCredentials
	}

	if err := i.limiter.Check(ctx, login, in.IP); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			return Result{}, err
		}
		i.log.Warn("auth.login.throttle.unavailable", "err", err)
	}

	ua, err := i.users.GetUserAuthByLogin(ctx, login)
	if err != nil {
		if !identity.IsNotFound(err) {
			return Result{}, err
		}
		_, _ = i.passwords.Verify(i.dummyHash, in.Password)
		i.recordFailure(ctx, login, in.IP)
		return Result{}, ErrInvalidCredentials
	}

	ok, err := i.passwords.Verify(ua.PasswordHash, in.Password)
	if err != nil {
		i.log.Error("auth.login.verify.fail", "user_id", ua.ID, "err", err)
	}
	if !ok {
		i.recordFailure(ctx, login, in.IP)
		return Result{}, ErrInvalidCredentials
	}

	if err := i.limiter.Reset(ctx, login); err != nil {
		i.log.Warn("auth.login.throttle.reset.fail", "err", err)
	}
	i.upgradeHash(ctx, ua, in.Password)

	return i.IssueFor(ctx, ua.User)
}

// Register creates a tenant and its administrator, then opens a session for them.
func (i *Issuer) Register(ctx context.Context, in RegisterInput) (Result, error) {
	if err := i.passwords.Validate(in.Password); err != nil {
		return Result{}, err
	}
	hash, err := i.passwords.Hash(in.Password)
	if err != nil {
		return Result{}, err
	}

	_, admin, err := i.users.CreateTenant(ctx, identity.CreateTenantInput{
		Name: strings.TrimSpace(in.TenantName),
		Code: in.TenantCode,
		Admin: identity.NewUser{
			Username:     in.Username,
			Email:        in.Email,
			Role:         identity.RoleAdmin,
			PasswordHash: hash,
		},
		Now: i.now(),
	})
	if err != nil {
		return Result{}, err
	}
	return i.IssueFor(ctx, admin)
}

// Refresh rotates secret and mints a fresh access credential from the
// owner's current tenant and role.
//
// Rotation failures surface as session.ErrTokenNotFound, ErrTokenRevoked or
// ErrTokenExpired. A vanished owner yields ErrAccountDeleted.
func (i *Issuer) Refresh(ctx context.Context, secret string) (Result, error) {
	now := i.now()

	next, err := i.sessions.Rotate(ctx, now, secret)
	if err != nil {
		return Result{}, err
	}

	user, tenant, err := i.owner(ctx, next.UserID)
	if err != nil {
		if errors.Is(err, ErrAccountDeleted) {
			if _, rerr := i.sessions.RevokeUsers(ctx, now, []string{next.UserID}, session.ReasonAccountDelete); rerr != nil {
				i.log.Error("auth.refresh.revoke_orphan.fail", "user_id", next.UserID, "err", rerr)
			}
		}
		return Result{}, err
	}

	access, accessExp, err := i.codec.Issue(subjectOf(user), now)
	if err != nil {
		return Result{}, err
	}
	return Result{
		User:             user,
		Tenant:           tenant,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     next.Secret,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

// Logout revokes secret. Blank, unknown and already revoked secrets are a no-op.
func (i *Issuer) Logout(ctx context.Context, secret string) error {
	return i.sessions.Revoke(ctx, i.now(), secret)
}

// IssueFor opens a session for an already authenticated user.
func (i *Issuer) IssueFor(ctx context.Context, user identity.User) (Result, error) {
	now := i.now()

	tenant, err := i.users.GetTenant(ctx, user.TenantID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Result{}, ErrAccountDeleted
		}
		return Result{}, err
	}

	access, accessExp, err := i.codec.Issue(subjectOf(user), now)
	if err != nil {
		return Result{}, err
	}
	refresh, err := i.sessions.Issue(ctx, now, user.ID)
	if err != nil {
		return Result{}, err
	}

	return Result{
		User:             user,
		Tenant:           tenant,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh.Secret,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (i *Issuer) owner(ctx context.Context, userID string) (identity.User, identity.Tenant, error) {
	user, err := i.users.GetUser(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, identity.Tenant{}, ErrAccountDeleted
		}
		return identity.User{}, identity.Tenant{}, err
	}
	tenant, err := i.users.GetTenant(ctx, user.TenantID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, identity.Tenant{}, ErrAccountDeleted
		}
		return identity.User{}, identity.Tenant{}, err
	}
	return user, tenant, nil
}

func (i *Issuer) recordFailure(ctx context.Context, login, ip string) {
	if err := i.limiter.Fail(ctx, login, ip); err != nil {
		i.log.Warn("auth.login.throttle.record.fail", "err", err)
	}
}

// upgradeHash re-hashes legacy or outdated hashes. Failure only costs a log line.
func (i *Issuer) upgradeHash(ctx context.Context, ua identity.UserAuth, plain string) {
	if !i.passwords.NeedsRehash(ua.PasswordHash) {
		return
	}
	hash, err := i.passwords.Hash(plain)
	if err == nil {
		_, err = i.users.UpdateUser(ctx, ua.ID, identity.UpdateUserInput{PasswordHash: &hash, Now: i.now()})
	}
	if err != nil {
		i.log.Warn("auth.login.rehash.fail", "user_id", ua.ID, "err", err)
		return
	}
	i.log.Info("auth.login.rehash", "user_id", ua.ID)
}

func subjectOf(u identity.User) credential.Subject {
	return credential.Subject{UserID: u.ID, TenantID: u.TenantID, Role: u.Role}
}
