package credential

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
)

// Subject is what an access credential asserts.
type Subject struct {
	UserID   string
	TenantID int64
	Role     identity.Role
}

// Claims is a verified access credential.
type Claims struct {
	Subject
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// Codec issues and verifies access credentials.
type Codec interface {
	Issue(sub Subject, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (Claims, error)
}

// New builds the Codec selected by cfg.Format.
func New(cfg Config) (Codec, error) {
	switch cfg.Format {
	case FormatPaseto, "":
		return NewPasetoV4Public(cfg)
	case FormatJWT:
		return NewJWTHS256(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrConfig, cfg.Format)
	}
}

// Claim names shared by both formats.
const (
	claimTenant = "tid"
	claimRole   = "role"
)

func (s Subject) validate() error {
	if strings.TrimSpace(s.UserID) == "" || s.TenantID <= 0 || !s.Role.Valid() {
		return fmt.Errorf("credential: incomplete subject")
	}
	return nil
}

func formatTenant(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseTenant(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// checkTimes applies the shared time rules once authenticity is established.
// Skew only relaxes not-before; expiry is exact.
func checkTimes(nbf, exp, now time.Time, skew time.Duration) error {
	if exp.IsZero() {
		return ErrInvalidCredential
	}
	if !nbf.IsZero() && nbf.After(now.Add(skew)) {
		return ErrInvalidCredential
	}
	if !exp.After(now) {
		return ErrCredentialExpired
	}
	return nil
}

// expiryFor truncates to whole seconds, the precision both formats carry.
func expiryFor(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl).Truncate(time.Second)
}
