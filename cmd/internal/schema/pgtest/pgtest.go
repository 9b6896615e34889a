// Package pgtest provides Postgres helpers for integration tests.
//
// Tests are opt-in: they run only when FOTOCOPIE_DATABASE_URL is set and
// each test gets its own throwaway schema.
package pgtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/schema"
)

// EnvDatabaseURL names the connection string used by integration tests.
const EnvDatabaseURL = "FOTOCOPIE_DATABASE_URL"

// Open connects to the test database, creates a fresh schema with all tables
// applied, and registers cleanup. It skips the test when no URL is configured.
func Open(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if raw == "" {
		t.Skip("integration test skipped: " + EnvDatabaseURL + " is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if os.Getenv("CI") == "" {
			t.Skipf("integration test skipped: postgres unreachable: %v", err)
		}
		t.Fatalf("ping postgres: %v", err)
	}

	name := "fotocopie_it_" + randomHex(t, 6)
	if err := schema.Apply(ctx, pool, name); err != nil {
		pool.Close()
		t.Fatalf("apply schema: %v", err)
	}

	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = pool.Exec(dropCtx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{name}.Sanitize()+` CASCADE`)
		pool.Close()
	})

	return pool, name
}

func randomHex(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return hex.EncodeToString(b)
}
