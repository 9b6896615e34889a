package ratelimit

import (
	"context"
	"strings"
	"time"
)

// LoginConfig tunes the login limiter.
type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultLoginConfig returns 10 failures per 15 minutes.
func DefaultLoginConfig() LoginConfig {
	return LoginConfig{MaxAttempts: 10, Window: 15 * time.Minute, KeyPrefix: "fotocopie:login"}
}

// LoginLimiter counts failed logins per identifier and per client IP.
type LoginLimiter struct {
	c   Counter
	cfg LoginConfig
}

// NewLoginLimiter builds a LoginLimiter. MaxAttempts <= 0 disables limiting.
func NewLoginLimiter(c Counter, cfg LoginConfig) *LoginLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultLoginConfig().KeyPrefix
	}
	return &LoginLimiter{c: c, cfg: cfg}
}

// Check fails with LimitError when either the identifier or the IP is over budget.
func (l *LoginLimiter) Check(ctx context.Context, login, ip string) error {
	if l == nil || l.cfg.MaxAttempts <= 0 {
		return nil
	}
	for _, key := range l.keys(login, ip) {
		count, remaining, err := l.c.Get(ctx, key)
		if err != nil {
			return err
		}
		if count >= int64(l.cfg.MaxAttempts) {
			return LimitError{RetryAfter: remaining}
		}
	}
	return nil
}

// Fail records a failed attempt.
func (l *LoginLimiter) Fail(ctx context.Context, login, ip string) error {
	if l == nil || l.cfg.MaxAttempts <= 0 {
		return nil
	}
	for _, key := range l.keys(login, ip) {
		if _, _, err := l.c.Incr(ctx, key, l.cfg.Window); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the identifier counter after a successful login.
// The IP counter is left alone so one valid account cannot launder a spraying IP.
func (l *LoginLimiter) Reset(ctx context.Context, login string) error {
	if l == nil || l.cfg.MaxAttempts <= 0 {
		return nil
	}
	return l.c.Reset(ctx, l.loginKey(login))
}

func (l *LoginLimiter) keys(login, ip string) []string {
	keys := []string{l.loginKey(login)}
	if ip = strings.TrimSpace(ip); ip != "" {
		keys = append(keys, l.cfg.KeyPrefix+":ip:"+ip)
	}
	return keys
}

func (l *LoginLimiter) loginKey(login string) string {
	return l.cfg.KeyPrefix + ":id:" + strings.ToLower(strings.TrimSpace(login))
}
