package credential

import (
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
)

type pasetoV4Public struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

// NewPasetoV4Public builds a Codec based on PASETO v4.public (Ed25519).
func NewPasetoV4Public(cfg Config) (Codec, error) {
	secret, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.PasetoV4SecretKeyHex)
	if err != nil {
		return nil, ErrConfig
	}

	return &pasetoV4Public{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTTL,
		clockSkew: cfg.ClockSkew,
		secret:    secret,
		public:    secret.Public(),
	}, nil
}

// NewPasetoV4SecretKeyHex generates a fresh signing key in the format expected
// by FOTOCOPIE_PASETO_V4_SECRET_KEY_HEX.
func NewPasetoV4SecretKeyHex() string {
	return paseto.NewV4AsymmetricSecretKey().ExportHex()
}

func (m *pasetoV4Public) Issue(sub Subject, now time.Time) (string, time.Time, error) {
	if err := sub.validate(); err != nil {
		return "", time.Time{}, err
	}
	exp := expiryFor(now, m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetSubject(sub.UserID)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	tok.SetString(claimTenant, formatTenant(sub.TenantID))
	tok.SetString(claimRole, string(sub.Role))

	return tok.V4Sign(m.secret, nil), exp, nil
}

func (m *pasetoV4Public) Verify(token string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMissingCredential
	}

	// Expiry is checked after the signature so an expired forgery stays invalid.
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(m.issuer))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return Claims{}, ErrInvalidCredential
	}

	exp, err := parsed.GetExpiration()
	if err != nil {
		return Claims{}, ErrInvalidCredential
	}
	nbf, _ := parsed.GetNotBefore()
	if err := checkTimes(nbf, exp, now, m.clockSkew); err != nil {
		return Claims{}, err
	}

	uid, err := parsed.GetSubject()
	if err != nil || uid == "" {
		return Claims{}, ErrInvalidCredential
	}
	rawTenant, err := parsed.GetString(claimTenant)
	if err != nil {
		return Claims{}, ErrInvalidCredential
	}
	tid, ok := parseTenant(rawTenant)
	if !ok {
		return Claims{}, ErrInvalidCredential
	}
	rawRole, err := parsed.GetString(claimRole)
	if err != nil {
		return Claims{}, ErrInvalidCredential
	}
	role := identity.Role(rawRole)
	if !role.Valid() {
		return Claims{}, ErrInvalidCredential
	}

	iat, _ := parsed.GetIssuedAt()
	iss, _ := parsed.GetIssuer()

	return Claims{
		Subject:   Subject{UserID: uid, TenantID: tid, Role: role},
		IssuedAt:  iat,
		ExpiresAt: exp,
		Issuer:    iss,
	}, nil
}
