package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/schema"
)

// PostgresStore persists invites in PostgreSQL.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default "fotocopie").
func WithSchema(name string) StoreOption {
	return func(s *PostgresStore) error {
		name = strings.TrimSpace(name)
		if !schema.Valid(name) {
			return fmt.Errorf("%w: schema %q", ErrInvalidInput, name)
		}
		s.table = schema.Table(name, "invites")
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, table: schema.Table(schema.Default, "invites")}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

const inviteColumns = `id, tenant_id, role, created_by, created_at, expires_at, max_uses, used_count, revoked_at`

func (s *PostgresStore) Create(ctx context.Context, inv Invite, codeHash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (id, tenant_id, role, code_hash, created_by, created_at, expires_at, max_uses, used_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.TenantID, string(inv.Role), codeHash, inv.CreatedBy,
		inv.CreatedAt, inv.ExpiresAt, inv.MaxUses, inv.UsedCount,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return identity.ConflictError{Op: "invite.Create", Field: "code"}
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Invite, error) {
	inv, err := scanInvite(s.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM `+s.table+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, identity.NotFoundError{Op: "invite.Get", Resource: "invite"}
	}
	return inv, err
}

// Consume relies on the row-level guard in the UPDATE so two concurrent
// enrollments cannot both take the last use.
func (s *PostgresStore) Consume(ctx context.Context, codeHash string, now time.Time) (Invite, error) {
	inv, err := scanInvite(s.pool.QueryRow(ctx,
		`UPDATE `+s.table+`
		    SET used_count = used_count + 1
		  WHERE code_hash = $1
		    AND revoked_at IS NULL
		    AND expires_at > $2
		    AND used_count < max_uses
		RETURNING `+inviteColumns,
		codeHash, now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, ErrInvalidInvite
	}
	return inv, err
}

func (s *PostgresStore) Release(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE `+s.table+` SET used_count = used_count - 1 WHERE id = $1 AND used_count > 0`, id)
	return err
}

func (s *PostgresStore) Revoke(ctx context.Context, id string, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table+` SET revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return identity.NotFoundError{Op: "invite.Revoke", Resource: "invite"}
	}
	return nil
}

func scanInvite(row pgx.Row) (Invite, error) {
	var (
		inv  Invite
		role string
	)
	err := row.Scan(&inv.ID, &inv.TenantID, &role, &inv.CreatedBy, &inv.CreatedAt,
		&inv.ExpiresAt, &inv.MaxUses, &inv.UsedCount, &inv.RevokedAt)
	if err != nil {
		return Invite{}, err
	}
	inv.Role = identity.Role(role)
	return inv, nil
}
