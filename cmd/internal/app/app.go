// Package app wires the fotocopie server: configuration, logging, storage,
// the auth services and the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/api"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/credential"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/guard"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/issuer"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/session"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/directory"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/invite"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/ratelimit"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/password"
)

// App owns the long-lived resources of one server process.
type App struct {
	cfg Config
	log *slog.Logger
	now func() time.Time

	pool     *pgxpool.Pool
	rdb      *redis.Client
	registry *prometheus.Registry
	sessions *session.Service

	handler http.Handler
}

// New builds every service from cfg and the package-level env configs.
// Without FOTOCOPIE_DATABASE_URL all state lives in memory.
func New(ctx context.Context, cfg Config, log *slog.Logger) (_ *App, err error) {
	if log == nil {
		log = NewLogger(nil, cfg.LogFormat, cfg.LogLevel)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	ccfg, err := credential.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	codec, err := credential.New(ccfg)
	if err != nil {
		return nil, err
	}
	scfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := scfg.CheckAccessTTL(ccfg.AccessTTL); err != nil {
		return nil, fmt.Errorf("%w: access TTL %s must be well below refresh TTL %s", err, ccfg.AccessTTL, scfg.RefreshTTL)
	}
	pw, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	authCfg := api.LoadConfigFromEnv()

	a := &App{
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var (
		users        identity.Store
		sessionStore session.Store
		inviteStore  invite.Store
		audit        api.AuditSink
	)
	if cfg.DatabaseURL != "" {
		if a.pool, err = NewDBPool(ctx, cfg); err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		pgUsers, err := identity.NewPostgresStore(a.pool, identity.WithSchema(cfg.DBSchema))
		if err != nil {
			return nil, err
		}
		pgSessions, err := session.NewPostgresStore(a.pool, session.WithSchema(cfg.DBSchema))
		if err != nil {
			return nil, err
		}
		pgInvites, err := invite.NewPostgresStore(a.pool, invite.WithSchema(cfg.DBSchema))
		if err != nil {
			return nil, err
		}
		pgAudit, err := api.NewPostgresAudit(a.pool, cfg.DBSchema, log)
		if err != nil {
			return nil, err
		}
		users, sessionStore, inviteStore, audit = pgUsers, pgSessions, pgInvites, pgAudit
		log.Info("store.postgres", "schema", cfg.DBSchema, "auto_migrate", cfg.DBAutoMigrate)
	} else {
		users, sessionStore, inviteStore = identity.NewMemoryStore(), session.NewMemoryStore(), invite.NewMemoryStore()
		audit = api.LogAudit{Log: log}
		log.Warn("store.memory", "reason", "FOTOCOPIE_DATABASE_URL not set")
	}

	var counter ratelimit.Counter = ratelimit.NewMemoryCounter(a.now)
	if cfg.RedisURL != "" {
		if a.rdb, err = NewRedisClient(ctx, cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		counter = ratelimit.NewRedisCounter(a.rdb)
	}

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics, err := api.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	httpm, err := newHTTPMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	a.sessions = session.NewService(scfg, sessionStore)
	iss, err := issuer.New(users, a.sessions, codec, pw,
		issuer.WithLogger(log),
		issuer.WithClock(a.now),
		issuer.WithLimiter(ratelimit.NewLoginLimiter(counter, authCfg.LoginLimits())),
	)
	if err != nil {
		return nil, err
	}
	invites, err := invite.NewService(inviteStore, users, pw,
		invite.WithLimits(authCfg.InviteLimits()),
		invite.WithClock(a.now),
		invite.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	auth, err := api.NewHandler(api.Deps{
		Log:       log,
		Config:    authCfg,
		Issuer:    iss,
		Guard:     guard.NewValidator(codec, a.now),
		Directory: directory.New(users, a.sessions, pw, log, a.now),
		Invites:   invites,
		Audit:     audit,
		Metrics:   authMetrics,
		Now:       a.now,
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a, auth)

	var h http.Handler = mux
	h = WithCORS(h, cfg, log)
	h = WithSecurityHeaders(h)
	h = WithRecover(h, log)
	a.handler = WithRequestLogging(h, log, httpm)

	log.Info("app.ready",
		"env", cfg.Env,
		"token_format", ccfg.Format,
		"access_ttl", ccfg.AccessTTL,
		"refresh_ttl", scfg.RefreshTTL,
		"redis", a.rdb != nil,
	)
	return a, nil
}

// Handler is the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP and runs the janitor until ctx is cancelled or the server
// fails, then shuts down gracefully and releases resources.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZero(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZero(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZero(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZero(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZero(a.cfg.MaxHeaderBytes, 1<<20),
		ErrorLog:          slog.NewLogLogger(a.log.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "base_url", runtimeBaseURL(a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return runJanitor(gctx, a.log, a.sessions, a.cfg.JanitorInterval, a.now)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), nonZero(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		a.log.Error("server.fail", "err", err)
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

func (a *App) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("redis.close.fail", "err", err)
		}
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func nonZero[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
