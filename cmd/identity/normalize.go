package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTenantCode upper-cases an institution code.
func NormalizeTenantCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeLogin canonicalizes a login identifier, which may be a username or an email.
func NormalizeLogin(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

func normPtr(p *string, norm func(string) string) *string {
	if p == nil {
		return nil
	}
	n := norm(*p)
	return &n
}
