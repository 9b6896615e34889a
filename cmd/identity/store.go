package identity

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is a user's authorization level inside its tenant.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
)

// ParseRole returns the Role named by s.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCollaborator:
		return RoleCollaborator, true
	default:
		return "", false
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCollaborator
}

// Tenant is the unit of isolation (an institution).
type Tenant struct {
	ID        int64
	Name      string
	Code      string
	CreatedAt time.Time
}

// User belongs to exactly one tenant. At least one of Username or Email is set.
type User struct {
	ID        string
	TenantID  int64
	Username  *string
	Email     *string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Login returns the preferred display identifier.
func (u User) Login() string {
	if u.Username != nil {
		return *u.Username
	}
	if u.Email != nil {
		return *u.Email
	}
	return ""
}

// OwnerTenant returns the tenant the user belongs to.
func (u User) OwnerTenant() int64 { return u.TenantID }

// UserAuth is a user together with its stored password hash.
// It never leaves the auth layer.
type UserAuth struct {
	User
	PasswordHash string
}

// NewUser describes a user to create. PasswordHash is an encoded hash, never a plain password.
type NewUser struct {
	Username     *string
	Email        *string
	Role         Role
	PasswordHash string
}

// CreateTenantInput creates a tenant together with its first administrator.
type CreateTenantInput struct {
	Name  string
	Code  string
	Admin NewUser
	Now   time.Time
}

// CreateUserInput adds a user to an existing tenant.
type CreateUserInput struct {
	TenantID int64
	User     NewUser
	Now      time.Time
}

// UpdateUserInput patches a user. Nil fields are left untouched; an empty
// Username or Email clears it as long as the other one remains.
type UpdateUserInput struct {
	Username     *string
	Email        *string
	Role         *Role
	PasswordHash *string
	Now          time.Time
}

// ListUsersQuery filters and pages a tenant's users.
type ListUsersQuery struct {
	Search string
	Limit  int
	Offset int
}

// UserPage is one page of users plus the total match count.
type UserPage struct {
	Users []User
	Total int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Store is the identity persistence boundary.
type Store interface {
	CreateTenant(ctx context.Context, in CreateTenantInput) (Tenant, User, error)
	GetTenant(ctx context.Context, id int64) (Tenant, error)
	DeleteTenant(ctx context.Context, id int64) error

	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserAuthByLogin(ctx context.Context, login string) (UserAuth, error)
	ListUsers(ctx context.Context, tenantID int64, q ListUsersQuery) (UserPage, error)
	ListUserIDs(ctx context.Context, tenantID int64) ([]string, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (User, error)
	DeleteUser(ctx context.Context, id string) error
}

func validateNewUser(op string, u *NewUser) error {
	u.Username = trimPtr(u.Username)
	u.Email = trimPtr(u.Email)

	if u.Username == nil && u.Email == nil {
		return invalid(op, "username or email is required")
	}
	if u.Username != nil && utf8.RuneCountInString(*u.Username) > 64 {
		return invalid(op, "username too long")
	}
	if u.Email != nil && (!strings.Contains(*u.Email, "@") || len(*u.Email) > 254) {
		return invalid(op, "invalid email")
	}
	if !u.Role.Valid() {
		return invalid(op, "invalid role")
	}
	if strings.TrimSpace(u.PasswordHash) == "" {
		return invalid(op, "password hash is required")
	}
	return nil
}

func validateTenant(op string, in *CreateTenantInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = NormalizeTenantCode(in.Code)

	if in.Name == "" || utf8.RuneCountInString(in.Name) > 200 {
		return invalid(op, "tenant name must be 1..200 characters")
	}
	if in.Code == "" || len(in.Code) > 10 {
		return invalid(op, "tenant code must be 1..10 characters")
	}
	return nil
}

// applyUpdate merges in into u and checks the login invariant.
func applyUpdate(op string, u *UserAuth, in UpdateUserInput) error {
	if in.Username != nil {
		u.Username = trimPtr(in.Username)
	}
	if in.Email != nil {
		u.Email = trimPtr(in.Email)
		if u.Email != nil && !strings.Contains(*u.Email, "@") {
			return invalid(op, "invalid email")
		}
	}
	if u.Username == nil && u.Email == nil {
		return invalid(op, "username or email is required")
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return invalid(op, "invalid role")
		}
		u.Role = *in.Role
	}
	if in.PasswordHash != nil {
		if strings.TrimSpace(*in.PasswordHash) == "" {
			return invalid(op, "password hash is required")
		}
		u.PasswordHash = *in.PasswordHash
	}
	return nil
}

func clampPage(q ListUsersQuery) ListUsersQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
	return q
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
