package credential

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testConfigs(t *testing.T) map[string]Config {
	t.Helper()

	p := DefaultConfig()
	p.PasetoV4SecretKeyHex = NewPasetoV4SecretKeyHex()

	j := DefaultConfig()
	j.Format = FormatJWT
	j.JWTSecret = strings.Repeat("s", 48)

	return map[string]Config{"paseto": p, "jwt": j}
}

func testSubject() Subject {
	return Subject{UserID: "6f1c2f4e-8a7b-4d1e-9a55-3c6b1f0d2e11", TenantID: 7, Role: identity.RoleCollaborator}
}

func TestCodec_IssueAndVerify(t *testing.T) {
	for name, cfg := range testConfigs(t) {
		t.Run(name, func(t *testing.T) {
			c, err := New(cfg)
			require.NoError(t, err)

			tok, exp, err := c.Issue(testSubject(), testNow)
			require.NoError(t, err)
			require.Equal(t, testNow.Add(15*time.Minute), exp)

			claims, err := c.Verify(tok, testNow.Add(time.Minute))
			require.NoError(t, err)
			require.Equal(t, testSubject(), claims.Subject)
			require.Equal(t, exp, claims.ExpiresAt.UTC())
			require.Equal(t, cfg.Issuer, claims.Issuer)
		})
	}
}

func TestCodec_Expired(t *testing.T) {
	for name, cfg := range testConfigs(t) {
		t.Run(name, func(t *testing.T) {
			c, err := New(cfg)
			require.NoError(t, err)

			tok, exp, err := c.Issue(testSubject(), testNow)
			require.NoError(t, err)

			// Expiry is exact: at exp the credential is already expired.
			_, err = c.Verify(tok, exp)
			require.ErrorIs(t, err, ErrCredentialExpired)

			_, err = c.Verify(tok, testNow.Add(16*time.Minute))
			require.ErrorIs(t, err, ErrCredentialExpired)
		})
	}
}

func TestCodec_Missing(t *testing.T) {
	for name, cfg := range testConfigs(t) {
		t.Run(name, func(t *testing.T) {
			c, err := New(cfg)
			require.NoError(t, err)

			_, err = c.Verify("  ", testNow)
			require.ErrorIs(t, err, ErrMissingCredential)
		})
	}
}

func TestCodec_TamperedAndForeignKey(t *testing.T) {
	for name, cfg := range testConfigs(t) {
		t.Run(name, func(t *testing.T) {
			c, err := New(cfg)
			require.NoError(t, err)

			tok, _, err := c.Issue(testSubject(), testNow)
			require.NoError(t, err)

			tampered := tok[:len(tok)-4] + flip(tok[len(tok)-4:])
			_, err = c.Verify(tampered, testNow)
			require.ErrorIs(t, err, ErrInvalidCredential)

			other := cfg
			other.PasetoV4SecretKeyHex = NewPasetoV4SecretKeyHex()
			other.JWTSecret = strings.Repeat("o", 48)
			foreign, err := New(other)
			require.NoError(t, err)

			forged, _, err := foreign.Issue(testSubject(), testNow)
			require.NoError(t, err)
			_, err = c.Verify(forged, testNow)
			require.ErrorIs(t, err, ErrInvalidCredential)

			// An expired forgery is still a forgery.
			_, err = c.Verify(forged, testNow.Add(time.Hour))
			require.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestCodec_WrongIssuer(t *testing.T) {
	for name, cfg := range testConfigs(t) {
		t.Run(name, func(t *testing.T) {
			issuing := cfg
			issuing.Issuer = "someone-else"
			src, err := New(issuing)
			require.NoError(t, err)
			dst, err := New(cfg)
			require.NoError(t, err)

			tok, _, err := src.Issue(testSubject(), testNow)
			require.NoError(t, err)

			_, err = dst.Verify(tok, testNow)
			require.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestCodec_RejectsIncompleteSubject(t *testing.T) {
	for name, cfg := range testConfigs(t) {
		t.Run(name, func(t *testing.T) {
			c, err := New(cfg)
			require.NoError(t, err)

			_, _, err = c.Issue(Subject{UserID: "u", TenantID: 0, Role: identity.RoleAdmin}, testNow)
			require.Error(t, err)
		})
	}
}

func TestJWT_RejectsAlgNone(t *testing.T) {
	cfg := testConfigs(t)["jwt"]
	c, err := New(cfg)
	require.NoError(t, err)

	// {"alg":"none","typ":"JWT"} with otherwise plausible claims.
	tok := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJ0aWQiOiI3Iiwicm9sZSI6ImFkbWluIiwiaXNzIjoiZ2VzdGlvbmUtZm90b2NvcGllIiwic3ViIjoidSIsImV4cCI6NDEwMjQ0NDgwMH0."
	_, err = c.Verify(tok, testNow)
	require.True(t, errors.Is(err, ErrInvalidCredential))
}

func TestNew_UnknownFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "saml"
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrConfig)
}

func flip(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
	}
	return string(b)
}
