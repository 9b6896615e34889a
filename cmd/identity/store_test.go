package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

// runStoreSuite exercises the Store contract; both implementations must pass it.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateTenantWithAdmin", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tenant, admin, err := s.CreateTenant(ctx, CreateTenantInput{
			Name:  "Liceo Galilei",
			Code:  " lg01 ",
			Admin: NewUser{Username: strPtr("Segreteria"), PasswordHash: "h"},
		})
		if err != nil {
			t.Fatalf("CreateTenant: %v", err)
		}
		if tenant.Code != "LG01" {
			t.Fatalf("expected normalized code, got %q", tenant.Code)
		}
		if admin.Role != RoleAdmin || admin.TenantID != tenant.ID {
			t.Fatalf("unexpected admin: %+v", admin)
		}

		got, err := s.GetTenant(ctx, tenant.ID)
		if err != nil || got.Name != "Liceo Galilei" {
			t.Fatalf("GetTenant: %+v %v", got, err)
		}
	})

	t.Run("DuplicateTenantCode", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		mustTenant(t, s, "A", "DUP", "first")
		_, _, err := s.CreateTenant(ctx, CreateTenantInput{
			Name: "B", Code: "dup",
			Admin: NewUser{Username: strPtr("second"), PasswordHash: "h"},
		})
		if ConflictField(err) != "code" {
			t.Fatalf("expected code conflict, got %v", err)
		}
	})

	t.Run("UsernameConflictIsCaseInsensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tenant, _ := mustTenant(t, s, "A", "T1", "Mario")
		_, err := s.CreateUser(ctx, CreateUserInput{
			TenantID: tenant.ID,
			User:     NewUser{Username: strPtr("mARIO"), Role: RoleCollaborator, PasswordHash: "h"},
		})
		if ConflictField(err) != "username" {
			t.Fatalf("expected username conflict, got %v", err)
		}
	})

	t.Run("RequiresUsernameOrEmail", func(t *testing.T) {
		s := newStore(t)
		tenant, _ := mustTenant(t, s, "A", "T1", "admin")

		_, err := s.CreateUser(context.Background(), CreateUserInput{
			TenantID: tenant.ID,
			User:     NewUser{Username: strPtr("  "), Role: RoleCollaborator, PasswordHash: "h"},
		})
		if !IsInvalidInput(err) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("LoginByUsernameOrEmail", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tenant, _ := mustTenant(t, s, "A", "T1", "admin")
		u, err := s.CreateUser(ctx, CreateUserInput{
			TenantID: tenant.ID,
			User: NewUser{
				Username:     strPtr("prof.rossi"),
				Email:        strPtr("Rossi@Scuola.it"),
				Role:         RoleCollaborator,
				PasswordHash: "secret-hash",
			},
		})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		for _, login := range []string{"PROF.ROSSI", "rossi@scuola.it"} {
			ua, err := s.GetUserAuthByLogin(ctx, login)
			if err != nil {
				t.Fatalf("%s: %v", login, err)
			}
			if ua.ID != u.ID || ua.PasswordHash != "secret-hash" || ua.TenantID != tenant.ID {
				t.Fatalf("%s: unexpected auth row %+v", login, ua)
			}
		}

		if _, err := s.GetUserAuthByLogin(ctx, "nobody"); !IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("ListUsersIsTenantScopedAndPaged", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, _ := mustTenant(t, s, "A", "TA", "admin-a")
		b, _ := mustTenant(t, s, "B", "TB", "admin-b")

		base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		for i, name := range []string{"anna", "bruno", "carla"} {
			_, err := s.CreateUser(ctx, CreateUserInput{
				TenantID: a.ID,
				User:     NewUser{Username: strPtr(name), Role: RoleCollaborator, PasswordHash: "h"},
				Now:      base.Add(time.Duration(i+1) * time.Minute),
			})
			if err != nil {
				t.Fatalf("CreateUser %s: %v", name, err)
			}
		}

		page, err := s.ListUsers(ctx, a.ID, ListUsersQuery{Limit: 2})
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		if page.Total != 4 || len(page.Users) != 2 {
			t.Fatalf("unexpected page: total=%d len=%d", page.Total, len(page.Users))
		}
		for _, u := range page.Users {
			if u.TenantID != a.ID {
				t.Fatalf("foreign user leaked into tenant listing: %+v", u)
			}
		}

		filtered, err := s.ListUsers(ctx, a.ID, ListUsersQuery{Search: "RL"})
		if err != nil {
			t.Fatalf("ListUsers search: %v", err)
		}
		if filtered.Total != 1 || filtered.Users[0].Login() != "carla" {
			t.Fatalf("unexpected search result: %+v", filtered)
		}

		idsB, err := s.ListUserIDs(ctx, b.ID)
		if err != nil || len(idsB) != 1 {
			t.Fatalf("ListUserIDs: %v %v", idsB, err)
		}
	})

	t.Run("UpdateUser", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, admin := mustTenant(t, s, "A", "T1", "admin")
		role := RoleCollaborator
		u, err := s.UpdateUser(ctx, admin.ID, UpdateUserInput{
			Email: strPtr("admin@scuola.it"),
			Role:  &role,
		})
		if err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		if u.Role != RoleCollaborator || u.Email == nil || *u.Email != "admin@scuola.it" {
			t.Fatalf("unexpected user: %+v", u)
		}

		// Clearing both identifiers must be refused.
		_, err = s.UpdateUser(ctx, admin.ID, UpdateUserInput{Username: strPtr(""), Email: strPtr("")})
		if !IsInvalidInput(err) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("DeleteTenantCascadesUsers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tenant, admin := mustTenant(t, s, "A", "T1", "admin")
		if err := s.DeleteTenant(ctx, tenant.ID); err != nil {
			t.Fatalf("DeleteTenant: %v", err)
		}
		if _, err := s.GetUser(ctx, admin.ID); !IsNotFound(err) {
			t.Fatalf("expected cascaded user delete, got %v", err)
		}
		if err := s.DeleteTenant(ctx, tenant.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found on second delete, got %v", err)
		}
	})

	t.Run("DeleteUser", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, admin := mustTenant(t, s, "A", "T1", "admin")
		if err := s.DeleteUser(ctx, admin.ID); err != nil {
			t.Fatalf("DeleteUser: %v", err)
		}
		if err := s.DeleteUser(ctx, admin.ID); !IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func mustTenant(t *testing.T, s Store, name, code, admin string) (Tenant, User) {
	t.Helper()

	tenant, u, err := s.CreateTenant(context.Background(), CreateTenantInput{
		Name:  name,
		Code:  code,
		Admin: NewUser{Username: strPtr(admin), PasswordHash: "h"},
		Now:   time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	return tenant, u
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" Admin "); !ok || r != RoleAdmin {
		t.Fatalf("expected admin, got %q %v", r, ok)
	}
	if _, ok := ParseRole("owner"); ok {
		t.Fatalf("unknown role must not parse")
	}
}
