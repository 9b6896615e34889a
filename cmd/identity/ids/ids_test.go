package ids

import (
	"testing"
	"time"
)

func TestNewULID_SortsByTime(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	a, err := NewULID(t0)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	b, err := NewULID(t0.Add(time.Second))
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("unexpected ULID length")
	}
	if !(a < b) {
		t.Fatalf("expected %s < %s", a, b)
	}
}

func TestUserID(t *testing.T) {
	id := NewUserID()
	if !ValidUserID(id) {
		t.Fatalf("generated id %q must validate", id)
	}
	if ValidUserID("not-a-uuid") {
		t.Fatalf("garbage must not validate")
	}
}
