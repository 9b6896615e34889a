package identity

import (
	"testing"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/schema/pgtest"
)

// Integration tests are opt-in and require FOTOCOPIE_DATABASE_URL.

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		pool, name := pgtest.Open(t)
		s, err := NewPostgresStore(pool, WithSchema(name))
		if err != nil {
			t.Fatalf("NewPostgresStore: %v", err)
		}
		return s
	})
}

func TestWithSchema_RejectsInvalidIdentifier(t *testing.T) {
	st := &PostgresStore{}
	if err := WithSchema(`bad"name`)(st); err == nil {
		t.Fatalf("expected error")
	}
}
