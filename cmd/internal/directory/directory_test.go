package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/issuer"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/session"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/tenant"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/password"
)

var t0 = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	users    *identity.MemoryStore
	sessions *session.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pw := password.DefaultConfig()
	pw.Params.MemoryKiB = 8 * 1024
	pw.Params.Iterations = 1
	pw.Params.Parallelism = 1

	users := identity.NewMemoryStore()
	sessions := session.NewService(session.DefaultConfig(), session.NewMemoryStore())
	now := func() time.Time { return t0 }
	return &fixture{svc: New(users, sessions, pw, nil, now), users: users, sessions: sessions}
}

func strp(s string) *string { return &s }

func (f *fixture) tenant(t *testing.T, code string) tenant.Scope {
	t.Helper()
	tn, admin, err := f.users.CreateTenant(context.Background(), identity.CreateTenantInput{
		Name:  "Istituto " + code,
		Code:  code,
		Admin: identity.NewUser{Username: strp("admin-" + code), PasswordHash: "$argon2id$placeholder"},
	})
	require.NoError(t, err)
	return tenant.Scope{UserID: admin.ID, TenantID: tn.ID, Role: identity.RoleAdmin}
}

func TestCreateListGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.tenant(t, "A")

	u, err := f.svc.Create(ctx, a, CreateInput{Username: strp("rossi"), Password: "fotocopie-2025!"})
	require.NoError(t, err)
	require.Equal(t, identity.RoleCollaborator, u.Role)
	require.Equal(t, a.TenantID, u.TenantID)

	page, err := f.svc.List(ctx, a, identity.ListUsersQuery{Search: "ross"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	got, err := f.svc.Get(ctx, a, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	// A collaborator reads only itself.
	collab := tenant.Scope{UserID: u.ID, TenantID: a.TenantID, Role: identity.RoleCollaborator}
	_, err = f.svc.Get(ctx, collab, u.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, collab, a.UserID)
	require.ErrorIs(t, err, tenant.ErrForbidden)
	_, err = f.svc.List(ctx, collab, identity.ListUsersQuery{})
	require.ErrorIs(t, err, tenant.ErrForbidden)
}

func TestCreate_WeakPasswordAndConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.tenant(t, "A")

	_, err := f.svc.Create(ctx, a, CreateInput{Username: strp("x"), Password: "123"})
	require.ErrorIs(t, err, password.ErrPasswordTooShort)

	_, err = f.svc.Create(ctx, a, CreateInput{Username: strp("admin-A"), Password: "fotocopie-2025!"})
	require.True(t, identity.IsConflict(err))
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.tenant(t, "A")
	b := f.tenant(t, "B")

	ua, err := f.svc.Create(ctx, a, CreateInput{Username: strp("bianchi"), Password: "fotocopie-2025!"})
	require.NoError(t, err)

	role := identity.RoleAdmin
	checks := map[string]error{}
	_, checks["get"] = f.svc.Get(ctx, b, ua.ID)
	_, checks["get-missing"] = f.svc.Get(ctx, b, "00000000-0000-0000-0000-000000000000")
	_, checks["update"] = f.svc.Update(ctx, b, ua.ID, UpdateInput{Role: &role})
	checks["delete"] = f.svc.Delete(ctx, b, ua.ID)
	for name, err := range checks {
		require.ErrorIs(t, err, tenant.ErrTenantMismatch, name)
	}

	got, err := f.svc.Get(ctx, a, ua.ID)
	require.NoError(t, err)
	require.Equal(t, identity.RoleCollaborator, got.Role)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.tenant(t, "A")

	u, err := f.svc.Create(ctx, a, CreateInput{Email: strp("verdi@scuola.it"), Password: "fotocopie-2025!"})
	require.NoError(t, err)

	role := identity.RoleAdmin
	pw := "nuova-password-1"
	got, err := f.svc.Update(ctx, a, u.ID, UpdateInput{Username: strp("verdi"), Role: &role, Password: &pw})
	require.NoError(t, err)
	require.Equal(t, identity.RoleAdmin, got.Role)
	require.Equal(t, "verdi", *got.Username)

	demote := identity.RoleCollaborator
	_, err = f.svc.Update(ctx, a, a.UserID, UpdateInput{Role: &demote})
	require.ErrorIs(t, err, tenant.ErrForbidden)
}

func TestStoredRoleWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.tenant(t, "A")

	u, err := f.svc.Create(ctx, a, CreateInput{Username: strp("neri"), Password: "fotocopie-2025!"})
	require.NoError(t, err)

	// Claims say admin, the store says collaborator.
	stale := tenant.Scope{UserID: u.ID, TenantID: a.TenantID, Role: identity.RoleAdmin}
	_, err = f.svc.List(ctx, stale, identity.ListUsersQuery{})
	require.ErrorIs(t, err, tenant.ErrForbidden)
}

func TestDelete_RevokesAndReportsAccountDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.tenant(t, "A")

	u, err := f.svc.Create(ctx, a, CreateInput{Username: strp("gialli"), Password: "fotocopie-2025!"})
	require.NoError(t, err)
	issued, err := f.sessions.Issue(ctx, t0, u.ID)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, a, a.UserID), tenant.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, a, u.ID))

	_, err = f.sessions.Rotate(ctx, t0, issued.Secret)
	require.ErrorIs(t, err, session.ErrTokenRevoked)

	gone := tenant.Scope{UserID: u.ID, TenantID: a.TenantID, Role: identity.RoleCollaborator}
	_, err = f.svc.Me(ctx, gone)
	require.ErrorIs(t, err, issuer.ErrAccountDeleted)
}

func TestDeleteTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.tenant(t, "A")
	b := f.tenant(t, "B")

	u, err := f.svc.Create(ctx, a, CreateInput{Username: strp("blu"), Password: "fotocopie-2025!"})
	require.NoError(t, err)
	ia, err := f.sessions.Issue(ctx, t0, u.ID)
	require.NoError(t, err)
	ib, err := f.sessions.Issue(ctx, t0, b.UserID)
	require.NoError(t, err)

	collab := tenant.Scope{UserID: u.ID, TenantID: a.TenantID, Role: identity.RoleCollaborator}
	require.ErrorIs(t, f.svc.DeleteTenant(ctx, collab), tenant.ErrForbidden)

	require.NoError(t, f.svc.DeleteTenant(ctx, a))

	_, err = f.sessions.Rotate(ctx, t0, ia.Secret)
	require.ErrorIs(t, err, session.ErrTokenRevoked)
	_, err = f.sessions.Rotate(ctx, t0, ib.Secret)
	require.NoError(t, err, "other tenants are untouched")

	_, err = f.svc.Me(ctx, a)
	require.True(t, errors.Is(err, issuer.ErrAccountDeleted))

	p, err := f.svc.Me(ctx, b)
	require.NoError(t, err)
	require.Equal(t, "B", p.Tenant.Code)
}
