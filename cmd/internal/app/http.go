package app

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/api"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
)

func registerHTTP(mux *http.ServeMux, a *App, auth *api.Handler) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", a.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	auth.Register(mux)
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	switch {
	case a.pool != nil:
		if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
			a.log.Warn("readyz.db.not_ready", "err", err)
			checks["database"], ready = "unavailable", false
		} else {
			checks["database"] = "ok"
		}
	case a.cfg.ReadinessRequireDB:
		checks["database"], ready = "not configured", false
	default:
		checks["database"] = "memory"
	}

	if a.rdb != nil {
		if err := PingRedis(r.Context(), a.rdb, time.Second); err != nil {
			a.log.Warn("readyz.redis.not_ready", "err", err)
			checks["redis"], ready = "unavailable", false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httpjson.WriteJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
