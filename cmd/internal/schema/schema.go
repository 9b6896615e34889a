// Package schema owns the Postgres DDL shared by every store and applies it
// to a named schema.
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Default is the schema used when none is configured.
const Default = "fotocopie"

//go:embed schema.sql
var ddl string

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Valid reports whether name is a plain Postgres identifier.
func Valid(name string) bool {
	return identRe.MatchString(name)
}

// Table returns the quoted "schema"."table" identifier.
func Table(schemaName, table string) string {
	return pgx.Identifier{schemaName, table}.Sanitize()
}

// SQL renders the DDL for schemaName.
func SQL(schemaName string) (string, error) {
	if !Valid(schemaName) {
		return "", fmt.Errorf("schema: invalid identifier %q", schemaName)
	}
	return strings.ReplaceAll(ddl, "{{schema}}", pgx.Identifier{schemaName}.Sanitize()), nil
}

// Apply creates the schema and all tables if they do not exist.
func Apply(ctx context.Context, db Execer, schemaName string) error {
	stmt, err := SQL(schemaName)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("schema: apply %s: %w", schemaName, err)
	}
	return nil
}
