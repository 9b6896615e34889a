package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/issuer"
)

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toTenantResponse(t identity.Tenant) tenantResponse {
	return tenantResponse{ID: t.ID, Name: t.Name, Code: t.Code}
}

func toSessionResponse(res issuer.Result, now time.Time) sessionResponse {
	tn := toTenantResponse(res.Tenant)
	expiresIn := int64(res.AccessExpiresAt.Sub(now).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return sessionResponse{
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt,
		ExpiresIn:        expiresIn,
		TokenType:        "Bearer",
		User:             toUserResponse(res.User),
		Tenant:           &tn,
	}
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	for p := range strings.SplitSeq(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
