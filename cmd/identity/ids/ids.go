// Package ids provides identifier primitives shared by the stores.
//
// Users are identified by UUIDv4 (the public-facing id), while internal
// records such as refresh credentials, invites and audit rows use ULIDs so
// they sort by creation time.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID string (26 chars).
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewUserID returns a random UUID in canonical form.
func NewUserID() string {
	return uuid.NewString()
}

// ValidUserID reports whether s parses as a UUID.
func ValidUserID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
