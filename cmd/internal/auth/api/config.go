package api

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/invite"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/ratelimit"
)

// Config controls HTTP-facing auth behavior.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	LoginMaxAttempts int
	LoginWindow      time.Duration

	InviteTTL     time.Duration
	InviteMaxTTL  time.Duration
	InviteMaxUses int
}

// DefaultConfig returns the defaults used when no environment is set.
func DefaultConfig() Config {
	login := ratelimit.DefaultLoginConfig()
	inv := invite.DefaultLimits()
	return Config{
		MaxBodyBytes:     httpjson.DefaultMaxBody,
		LoginMaxAttempts: login.MaxAttempts,
		LoginWindow:      login.Window,
		InviteTTL:        inv.DefaultTTL,
		InviteMaxTTL:     inv.MaxTTL,
		InviteMaxUses:    inv.MaxUses,
	}
}

// LoadConfigFromEnv loads auth API config with safe defaults. Unparseable
// values fall back to the default.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:       envBool("FOTOCOPIE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:     envInt64("FOTOCOPIE_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		LoginMaxAttempts: envInt("FOTOCOPIE_LOGIN_MAX_ATTEMPTS", def.LoginMaxAttempts),
		LoginWindow:      envDuration("FOTOCOPIE_LOGIN_WINDOW", def.LoginWindow),
		InviteTTL:        envDuration("FOTOCOPIE_INVITE_TTL", def.InviteTTL),
		InviteMaxTTL:     envDuration("FOTOCOPIE_INVITE_TTL_MAX", def.InviteMaxTTL),
		InviteMaxUses:    envInt("FOTOCOPIE_INVITE_MAX_USES", def.InviteMaxUses),
	}
	if cfg.InviteTTL > cfg.InviteMaxTTL {
		cfg.InviteTTL = cfg.InviteMaxTTL
	}
	return cfg
}

// LoginLimits converts the login settings for ratelimit.
func (c Config) LoginLimits() ratelimit.LoginConfig {
	l := ratelimit.DefaultLoginConfig()
	l.MaxAttempts = c.LoginMaxAttempts
	l.Window = c.LoginWindow
	return l
}

// InviteLimits converts the invite settings for invite.Service.
func (c Config) InviteLimits() invite.Limits {
	l := invite.DefaultLimits()
	l.DefaultTTL = c.InviteTTL
	l.MaxTTL = c.InviteMaxTTL
	l.MaxUses = c.InviteMaxUses
	return l
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
