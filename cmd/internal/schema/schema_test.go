package schema

import (
	"strings"
	"testing"
)

func TestSQL_QuotesSchema(t *testing.T) {
	out, err := SQL("fotocopie_it")
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	if strings.Contains(out, "{{schema}}") {
		t.Fatalf("placeholder left in output")
	}
	if !strings.Contains(out, `"fotocopie_it".refresh_credentials`) {
		t.Fatalf("expected quoted schema prefix")
	}
}

func TestSQL_RejectsInvalidIdentifier(t *testing.T) {
	for _, name := range []string{"", "1abc", `x"; DROP TABLE users; --`, "a-b"} {
		if _, err := SQL(name); err == nil {
			t.Fatalf("expected error for %q", name)
		}
	}
}

func TestTable(t *testing.T) {
	if got := Table("fotocopie", "users"); got != `"fotocopie"."users"` {
		t.Fatalf("unexpected identifier %s", got)
	}
}
