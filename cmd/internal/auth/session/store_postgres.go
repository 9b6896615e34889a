package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/schema"
)

// PostgresStore implements Store over the refresh_credentials table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema (default "fotocopie").
func WithSchema(name string) PostgresOption {
	return func(s *PostgresStore) error {
		name = strings.TrimSpace(name)
		if !schema.Valid(name) {
			return fmt.Errorf("session: invalid schema identifier %q", name)
		}
		s.table = schema.Table(name, "refresh_credentials")
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed refresh store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, table: schema.Table(schema.Default, "refresh_credentials")}
	for _, opt := range opts {
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return st, nil
}

const recordColumns = `id, user_id, secret_hash, created_at, expires_at, revoked_at, replaced_by, revocation_reason`

// Create inserts a new active record.
func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	return insertRecord(ctx, s.pool, s.table, rec)
}

// GetByHash loads a record by secret hash.
func (s *PostgresStore) GetByHash(ctx context.Context, secretHash string) (Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM `+s.table+` WHERE secret_hash = $1`, secretHash)
	return scanRecord(row)
}

// Rotate locks the presented record, validates it and swaps in the successor.
//
// SELECT ... FOR UPDATE serializes concurrent rotations of the same record.
// Under READ COMMITTED the blocked transaction re-reads the row after the
// winner commits, sees revoked_at set and fails with ErrTokenRevoked.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, oldHash string, next Record) (Record, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	old, err := scanRecord(tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM `+s.table+` WHERE secret_hash = $1 FOR UPDATE`,
		oldHash,
	))
	if err != nil {
		return Record{}, err
	}
	if err := old.check(now); err != nil {
		return Record{}, err
	}

	next.UserID = old.UserID
	if err := insertRecord(ctx, tx, s.table, next); err != nil {
		return Record{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE `+s.table+`
		   SET revoked_at = $2,
		       replaced_by = $3,
		       revocation_reason = $4
		 WHERE id = $1`,
		old.ID, now, next.ID, ReasonRotation,
	)
	if err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return next, nil
}

// Revoke revokes a single record (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, secretHash string, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.table+`
		   SET revoked_at = COALESCE(revoked_at, $2),
		       revocation_reason = COALESCE(revocation_reason, $3)
		 WHERE secret_hash = $1`,
		secretHash, now, reason,
	)
	return err
}

// RevokeAllForUsers revokes every active record of the given users.
func (s *PostgresStore) RevokeAllForUsers(ctx context.Context, now time.Time, userIDs []string, reason string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table+`
		   SET revoked_at = $2,
		       revocation_reason = $3
		 WHERE user_id = ANY($1::uuid[])
		   AND revoked_at IS NULL`,
		userIDs, now, reason,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired deletes records that expired before the cutoff.
func (s *PostgresStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRecord(ctx context.Context, db execer, table string, rec Record) error {
	_, err := db.Exec(ctx, `
		INSERT INTO `+table+` (
			id, user_id, secret_hash, created_at, expires_at,
			revoked_at, replaced_by, revocation_reason
		) VALUES ($1, $2, $3, $4, $5, NULL, NULL, NULL)`,
		rec.ID, rec.UserID, rec.SecretHash, rec.CreatedAt, rec.ExpiresAt,
	)
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.SecretHash,
		&r.CreatedAt,
		&r.ExpiresAt,
		&r.RevokedAt,
		&r.ReplacedBy,
		&r.RevocationReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrTokenNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return r, nil
}
