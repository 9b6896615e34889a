package credential

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
)

type jwtClaims struct {
	TenantID string `json:"tid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type jwtHS256 struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	key       []byte
}

// NewJWTHS256 builds a Codec issuing HS256-signed JWTs.
func NewJWTHS256(cfg Config) (Codec, error) {
	if len(cfg.JWTSecret) < minJWTSecretBytes {
		return nil, ErrConfig
	}
	return &jwtHS256{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTTL,
		clockSkew: cfg.ClockSkew,
		key:       []byte(cfg.JWTSecret),
	}, nil
}

func (m *jwtHS256) Issue(sub Subject, now time.Time) (string, time.Time, error) {
	if err := sub.validate(); err != nil {
		return "", time.Time{}, err
	}
	exp := expiryFor(now, m.ttl)

	claims := jwtClaims{
		TenantID: formatTenant(sub.TenantID),
		Role:     string(sub.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   sub.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *jwtHS256) Verify(token string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMissingCredential
	}

	// Time rules are applied below, after the signature has been checked.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var c jwtClaims
	_, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidCredential
	}

	if c.Issuer != m.issuer || c.Subject == "" || c.ExpiresAt == nil {
		return Claims{}, ErrInvalidCredential
	}

	var nbf time.Time
	if c.NotBefore != nil {
		nbf = c.NotBefore.Time
	}
	if err := checkTimes(nbf, c.ExpiresAt.Time, now, m.clockSkew); err != nil {
		return Claims{}, err
	}

	tid, ok := parseTenant(c.TenantID)
	if !ok {
		return Claims{}, ErrInvalidCredential
	}
	role := identity.Role(c.Role)
	if !role.Valid() {
		return Claims{}, ErrInvalidCredential
	}

	var iat time.Time
	if c.IssuedAt != nil {
		iat = c.IssuedAt.Time
	}

	return Claims{
		Subject:   Subject{UserID: c.Subject, TenantID: tid, Role: role},
		IssuedAt:  iat,
		ExpiresAt: c.ExpiresAt.Time,
		Issuer:    c.Issuer,
	}, nil
}
