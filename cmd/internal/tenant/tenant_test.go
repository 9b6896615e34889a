package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/guard"
)

type doc struct {
	id     string
	tenant int64
}

func (d doc) OwnerTenant() int64 { return d.tenant }

func finder(docs ...doc) func(context.Context, string) (doc, error) {
	return func(ctx context.Context, id string) (doc, error) {
		for _, d := range docs {
			if d.id == id {
				return d, nil
			}
		}
		return doc{}, identity.NotFoundError{Op: "test.find", Resource: "doc"}
	}
}

func TestFromContext(t *testing.T) {
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrNoScope) {
		t.Fatalf("expected ErrNoScope, got %v", err)
	}

	ctx := guard.WithContext(context.Background(), guard.Context{UserID: "u", TenantID: 4, Role: identity.RoleCollaborator})
	s, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if s.TenantID != 4 || s.UserID != "u" || s.Role != identity.RoleCollaborator {
		t.Fatalf("unexpected scope %+v", s)
	}
}

func TestLoad_IsolatesTenants(t *testing.T) {
	find := finder(doc{id: "a1", tenant: 1}, doc{id: "b1", tenant: 2})
	a := Scope{UserID: "ua", TenantID: 1, Role: identity.RoleAdmin}
	b := Scope{UserID: "ub", TenantID: 2, Role: identity.RoleAdmin}

	if _, err := Load(context.Background(), a, "a1", find); err != nil {
		t.Fatalf("own resource: %v", err)
	}
	// Foreign and missing ids must look the same.
	for _, id := range []string{"a1", "missing"} {
		if _, err := Load(context.Background(), b, id, find); !errors.Is(err, ErrTenantMismatch) {
			t.Fatalf("id %q: expected ErrTenantMismatch, got %v", id, err)
		}
	}
}

func TestLoad_PropagatesBackendErrors(t *testing.T) {
	boom := errors.New("db down")
	find := func(ctx context.Context, id string) (doc, error) { return doc{}, boom }

	_, err := Load(context.Background(), Scope{TenantID: 1}, "x", find)
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	s := Scope{TenantID: 1, Role: identity.RoleCollaborator}
	if err := s.RequireRole(identity.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := s.RequireRole(identity.RoleCollaborator); err != nil {
		t.Fatalf("RequireRole: %v", err)
	}
}
