package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity/ids"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/schema"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pool is owned by the caller; this store never closes it.
// Identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema used by the store (default "fotocopie").
func WithSchema(name string) PostgresOption {
	return func(s *PostgresStore) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !schema.Valid(name) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = name
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: schema.Default}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, tenant_id, username, email, role, created_at, updated_at`

// CreateTenant inserts a tenant and its first administrator in one transaction.
func (s *PostgresStore) CreateTenant(ctx context.Context, in CreateTenantInput) (Tenant, User, error) {
	const op = "identity.CreateTenant"

	if err := validateTenant(op, &in); err != nil {
		return Tenant{}, User{}, err
	}
	in.Admin.Role = RoleAdmin
	if err := validateNewUser(op, &in.Admin); err != nil {
		return Tenant{}, User{}, err
	}
	now := nowOr(in.Now)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Tenant{}, User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t := Tenant{Name: in.Name, Code: in.Code, CreatedAt: now}
	err = tx.QueryRow(ctx,
		`INSERT INTO `+s.table("tenants")+` (name, code, created_at) VALUES ($1, $2, $3) RETURNING id`,
		t.Name, t.Code, now,
	).Scan(&t.ID)
	if err != nil {
		return Tenant{}, User{}, classifyWrite(op, err)
	}

	u, err := s.insertUser(ctx, tx, op, t.ID, in.Admin, now)
	if err != nil {
		return Tenant{}, User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Tenant{}, User{}, err
	}
	return t, u, nil
}

// GetTenant loads a tenant by id.
func (s *PostgresStore) GetTenant(ctx context.Context, id int64) (Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, code, created_at FROM `+s.table("tenants")+` WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Code, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, NotFoundError{Op: "identity.GetTenant", Resource: "tenant"}
	}
	return t, err
}

// DeleteTenant removes a tenant; users, their refresh credentials and invites cascade.
func (s *PostgresStore) DeleteTenant(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table("tenants")+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: "identity.DeleteTenant", Resource: "tenant"}
	}
	return nil
}

// CreateUser adds a user to an existing tenant.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := validateNewUser(op, &in.User); err != nil {
		return User{}, err
	}
	if in.TenantID <= 0 {
		return User{}, invalid(op, "missing tenant")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := s.insertUser(ctx, tx, op, in.TenantID, in.User, nowOr(in.Now))
	if err != nil {
		return User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) insertUser(ctx context.Context, tx pgx.Tx, op string, tenantID int64, nu NewUser, now time.Time) (User, error) {
	u := User{
		ID:        ids.NewUserID(),
		TenantID:  tenantID,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO `+s.table("users")+` (
		     id, tenant_id, username, username_norm, email, email_norm,
		     role, password_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		u.ID, tenantID,
		u.Username, normPtr(u.Username, NormalizeUsername),
		u.Email, normPtr(u.Email, NormalizeEmail),
		string(u.Role), nu.PasswordHash, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return User{}, NotFoundError{Op: op, Resource: "tenant"}
		}
		return User{}, classifyWrite(op, err)
	}
	return u, nil
}

// GetUser loads a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	if !ids.ValidUserID(id) {
		return User{}, NotFoundError{Op: "identity.GetUser", Resource: "user"}
	}
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM `+s.table("users")+` WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: "identity.GetUser", Resource: "user"}
	}
	return u, err
}

// GetUserAuthByLogin resolves a username or email to a user and its password hash.
func (s *PostgresStore) GetUserAuthByLogin(ctx context.Context, login string) (UserAuth, error) {
	login = NormalizeLogin(login)
	if login == "" {
		return UserAuth{}, NotFoundError{Op: "identity.GetUserAuthByLogin", Resource: "user"}
	}

	var (
		ua   UserAuth
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash
		   FROM `+s.table("users")+`
		  WHERE username_norm = $1 OR email_norm = $1
		  ORDER BY (username_norm = $1) DESC
		  LIMIT 1`,
		login,
	).Scan(&ua.ID, &ua.TenantID, &ua.Username, &ua.Email, &role, &ua.CreatedAt, &ua.UpdatedAt, &ua.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, NotFoundError{Op: "identity.GetUserAuthByLogin", Resource: "user"}
	}
	if err != nil {
		return UserAuth{}, err
	}
	ua.Role = Role(role)
	return ua, nil
}

// ListUsers returns one page of a tenant's users ordered by creation.
func (s *PostgresStore) ListUsers(ctx context.Context, tenantID int64, q ListUsersQuery) (UserPage, error) {
	q = clampPage(q)
	users := s.table("users")
	pattern := "%" + escapeLike(q.Search) + "%"

	const filter = ` WHERE tenant_id = $1
	   AND ($2 = '' OR username_norm LIKE $3 ESCAPE '\' OR email_norm LIKE $3 ESCAPE '\')`

	var page UserPage
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+users+filter, tenantID, q.Search, pattern).Scan(&page.Total); err != nil {
		return UserPage{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM `+users+filter+`
		  ORDER BY created_at ASC, id ASC
		  LIMIT $4 OFFSET $5`,
		tenantID, q.Search, pattern, q.Limit, q.Offset,
	)
	if err != nil {
		return UserPage{}, err
	}
	defer rows.Close()

	page.Users = make([]User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return UserPage{}, err
		}
		page.Users = append(page.Users, u)
	}
	return page, rows.Err()
}

// ListUserIDs returns every user id in a tenant.
func (s *PostgresStore) ListUserIDs(ctx context.Context, tenantID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM `+s.table("users")+` WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpdateUser patches a user under a row lock.
func (s *PostgresStore) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (User, error) {
	const op = "identity.UpdateUser"

	if !ids.ValidUserID(id) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	users := s.table("users")

	var (
		ua   UserAuth
		role string
	)
	err = tx.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM `+users+` WHERE id = $1 FOR UPDATE`, id,
	).Scan(&ua.ID, &ua.TenantID, &ua.Username, &ua.Email, &role, &ua.CreatedAt, &ua.UpdatedAt, &ua.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}
	ua.Role = Role(role)

	if err := applyUpdate(op, &ua, in); err != nil {
		return User{}, err
	}
	ua.UpdatedAt = nowOr(in.Now)

	_, err = tx.Exec(ctx,
		`UPDATE `+users+`
		    SET username = $2, username_norm = $3, email = $4, email_norm = $5,
		        role = $6, password_hash = $7, updated_at = $8
		  WHERE id = $1`,
		id,
		ua.Username, normPtr(ua.Username, NormalizeUsername),
		ua.Email, normPtr(ua.Email, NormalizeEmail),
		string(ua.Role), ua.PasswordHash, ua.UpdatedAt,
	)
	if err != nil {
		return User{}, classifyWrite(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return ua.User, nil
}

// DeleteUser removes a user; its refresh credentials cascade.
func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	if !ids.ValidUserID(id) {
		return NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table("users")+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
	}
	return nil
}

// ---- helpers ----

func (s *PostgresStore) table(name string) string {
	return schema.Table(s.schema, name)
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.TenantID, &u.Username, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// classifyWrite maps unique violations to ConflictError and passes everything else through.
func classifyWrite(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	c := strings.ToLower(pgErr.ConstraintName)
	switch {
	case c == "uq_users_username_norm" || strings.Contains(c, "username"):
		return ConflictError{Op: op, Field: "username"}
	case c == "uq_users_email_norm" || strings.Contains(c, "email"):
		return ConflictError{Op: op, Field: "email"}
	case c == "uq_tenants_code" || strings.Contains(c, "code"):
		return ConflictError{Op: op, Field: "code"}
	default:
		return ConflictError{Op: op}
	}
}
