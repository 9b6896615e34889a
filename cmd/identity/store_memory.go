package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity/ids"
)

// MemoryStore is an in-process Store used by tests and by the server when no
// database is configured. It enforces the same uniqueness rules as the
// Postgres schema.
type MemoryStore struct {
	mu sync.RWMutex

	nextTenantID int64
	tenants      map[int64]Tenant
	users        map[string]UserAuth
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[int64]Tenant),
		users:   make(map[string]UserAuth),
	}
}

func (s *MemoryStore) CreateTenant(ctx context.Context, in CreateTenantInput) (Tenant, User, error) {
	const op = "identity.CreateTenant"

	if err := ctx.Err(); err != nil {
		return Tenant{}, User{}, err
	}
	if err := validateTenant(op, &in); err != nil {
		return Tenant{}, User{}, err
	}
	in.Admin.Role = RoleAdmin
	if err := validateNewUser(op, &in.Admin); err != nil {
		return Tenant{}, User{}, err
	}
	now := nowOr(in.Now)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.Code == in.Code {
			return Tenant{}, User{}, ConflictError{Op: op, Field: "code"}
		}
	}
	if err := s.checkUniqueLocked(op, "", in.Admin.Username, in.Admin.Email); err != nil {
		return Tenant{}, User{}, err
	}

	s.nextTenantID++
	t := Tenant{ID: s.nextTenantID, Name: in.Name, Code: in.Code, CreatedAt: now}
	s.tenants[t.ID] = t

	return t, s.insertLocked(t.ID, in.Admin, now), nil
}

func (s *MemoryStore) GetTenant(ctx context.Context, id int64) (Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return Tenant{}, NotFoundError{Op: "identity.GetTenant", Resource: "tenant"}
	}
	return t, nil
}

func (s *MemoryStore) DeleteTenant(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return NotFoundError{Op: "identity.DeleteTenant", Resource: "tenant"}
	}
	delete(s.tenants, id)
	for uid, u := range s.users {
		if u.TenantID == id {
			delete(s.users, uid)
		}
	}
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := validateNewUser(op, &in.User); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[in.TenantID]; !ok {
		return User{}, NotFoundError{Op: op, Resource: "tenant"}
	}
	if err := s.checkUniqueLocked(op, "", in.User.Username, in.User.Email); err != nil {
		return User{}, err
	}
	return s.insertLocked(in.TenantID, in.User, nowOr(in.Now)), nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUser", Resource: "user"}
	}
	return u.User, nil
}

func (s *MemoryStore) GetUserAuthByLogin(ctx context.Context, login string) (UserAuth, error) {
	login = NormalizeLogin(login)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var byEmail *UserAuth
	for _, u := range s.users {
		if u.Username != nil && NormalizeUsername(*u.Username) == login {
			return u, nil
		}
		if u.Email != nil && NormalizeEmail(*u.Email) == login {
			cp := u
			byEmail = &cp
		}
	}
	if login == "" || byEmail == nil {
		return UserAuth{}, NotFoundError{Op: "identity.GetUserAuthByLogin", Resource: "user"}
	}
	return *byEmail, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, tenantID int64, q ListUsersQuery) (UserPage, error) {
	q = clampPage(q)

	s.mu.RLock()
	matched := make([]User, 0)
	for _, u := range s.users {
		if u.TenantID != tenantID || !matchesSearch(u.User, q.Search) {
			continue
		}
		matched = append(matched, u.User)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	page := UserPage{Total: len(matched), Users: []User{}}
	if q.Offset < len(matched) {
		end := min(q.Offset+q.Limit, len(matched))
		page.Users = matched[q.Offset:end]
	}
	return page, nil
}

func (s *MemoryStore) ListUserIDs(ctx context.Context, tenantID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0)
	for id, u := range s.users {
		if u.TenantID == tenantID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (User, error) {
	const op = "identity.UpdateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err := applyUpdate(op, &ua, in); err != nil {
		return User{}, err
	}
	if err := s.checkUniqueLocked(op, id, ua.Username, ua.Email); err != nil {
		return User{}, err
	}
	ua.UpdatedAt = nowOr(in.Now)
	s.users[id] = ua
	return ua.User, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) insertLocked(tenantID int64, nu NewUser, now time.Time) User {
	u := UserAuth{
		User: User{
			ID:        ids.NewUserID(),
			TenantID:  tenantID,
			Username:  nu.Username,
			Email:     nu.Email,
			Role:      nu.Role,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: nu.PasswordHash,
	}
	s.users[u.ID] = u
	return u.User
}

func (s *MemoryStore) checkUniqueLocked(op, selfID string, username, email *string) error {
	for id, u := range s.users {
		if id == selfID {
			continue
		}
		if username != nil && u.Username != nil && NormalizeUsername(*u.Username) == NormalizeUsername(*username) {
			return ConflictError{Op: op, Field: "username"}
		}
		if email != nil && u.Email != nil && NormalizeEmail(*u.Email) == NormalizeEmail(*email) {
			return ConflictError{Op: op, Field: "email"}
		}
	}
	return nil
}

func matchesSearch(u User, search string) bool {
	if search == "" {
		return true
	}
	if u.Username != nil && strings.Contains(NormalizeUsername(*u.Username), search) {
		return true
	}
	return u.Email != nil && strings.Contains(NormalizeEmail(*u.Email), search)
}
