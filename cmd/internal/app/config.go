package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/schema"
)

// ErrConfig is returned for invalid or incomplete runtime configuration.
var ErrConfig = errors.New("invalid app config")

// Config is the process configuration read from FOTOCOPIE_* variables.
type Config struct {
	Env       string
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL   string
	DBSchema      string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	// RedisURL enables shared login throttling counters. Empty keeps them in memory.
	RedisURL string

	// ReadinessRequireDB makes /readyz fail while no database is configured.
	ReadinessRequireDB bool

	// JanitorInterval is how often expired refresh credentials are purged. Zero disables it.
	JanitorInterval time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// RequireTokenHMAC forces keyed hashing of refresh secrets.
	RequireTokenHMAC bool
}

func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadConfig reads Config from the environment and validates it.
func LoadConfig() (Config, error) {
	cfg := Config{
		Env:       envString("FOTOCOPIE_ENV", "development"),
		HTTPAddr:  envString("FOTOCOPIE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  envString("FOTOCOPIE_LOG_LEVEL", "info"),
		LogFormat: envString("FOTOCOPIE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: envDuration("FOTOCOPIE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       envDuration("FOTOCOPIE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      envDuration("FOTOCOPIE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       envDuration("FOTOCOPIE_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   envDuration("FOTOCOPIE_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    envInt("FOTOCOPIE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   envString("FOTOCOPIE_DATABASE_URL", ""),
		DBSchema:      envString("FOTOCOPIE_DB_SCHEMA", schema.Default),
		DBMaxConns:    envInt32("FOTOCOPIE_DB_MAX_CONNS", 10),
		DBMinConns:    envInt32("FOTOCOPIE_DB_MIN_CONNS", 0),
		DBAutoMigrate: envBool("FOTOCOPIE_DB_AUTO_MIGRATE", false),

		RedisURL: envString("FOTOCOPIE_REDIS_URL", ""),

		ReadinessRequireDB: envBool("FOTOCOPIE_READINESS_REQUIRE_DB", false),
		JanitorInterval:    envDuration("FOTOCOPIE_JANITOR_INTERVAL", time.Hour),

		CORSAllowedOrigins:   envList("FOTOCOPIE_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: envBool("FOTOCOPIE_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    envInt("FOTOCOPIE_CORS_MAX_AGE_SECONDS", 600),

		RequireTokenHMAC: envBool("FOTOCOPIE_REQUIRE_TOKEN_HMAC", false),
	}
	if v := envString("FOTOCOPIE_JANITOR_INTERVAL", ""); v == "0" || v == "0s" {
		cfg.JanitorInterval = 0
	}
	if cfg.Production() {
		cfg.RequireTokenHMAC = true
		cfg.ReadinessRequireDB = true
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !schema.Valid(c.DBSchema) {
		return fmt.Errorf("%w: FOTOCOPIE_DB_SCHEMA %q is not a plain identifier", ErrConfig, c.DBSchema)
	}
	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		return fmt.Errorf("%w: FOTOCOPIE_DB_MIN_CONNS exceeds FOTOCOPIE_DB_MAX_CONNS", ErrConfig)
	}
	if c.Production() && c.DatabaseURL == "" {
		return fmt.Errorf("%w: FOTOCOPIE_DATABASE_URL is required in production", ErrConfig)
	}
	for _, o := range c.CORSAllowedOrigins {
		if o == "*" && c.CORSAllowCredentials {
			return fmt.Errorf("%w: wildcard CORS origin cannot allow credentials", ErrConfig)
		}
	}
	return nil
}
