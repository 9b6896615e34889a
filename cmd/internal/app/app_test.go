package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/credential"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/session"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "empty host", in: ":7070", want: "http://127.0.0.1:7070"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := runtimeBaseURL(tc.in); got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func newMemoryApp(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	t.Setenv("FOTOCOPIE_PASETO_V4_SECRET_KEY_HEX", credential.NewPasetoV4SecretKeyHex())
	t.Setenv("FOTOCOPIE_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("FOTOCOPIE_ARGON2_ITERATIONS", "1")

	if cfg.DBSchema == "" {
		cfg.DBSchema = "fotocopie"
	}
	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, bearer, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestApp_MemoryEndToEnd(t *testing.T) {
	srv := newMemoryApp(t, Config{})

	resp, body := call(t, srv, http.MethodGet, "/healthz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status=%d body=%s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers")
	}

	resp, body = call(t, srv, http.MethodGet, "/readyz", "", "")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"memory"`)) {
		t.Fatalf("readyz status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = call(t, srv, http.MethodPost, "/auth/register", "",
		`{"tenant_name":"Liceo Volta","tenant_code":"VOLTA","username":"segreteria","password":"fotocopie-2025!"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", resp.StatusCode, body)
	}
	var sess struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &sess); err != nil || sess.AccessToken == "" {
		t.Fatalf("register body=%s err=%v", body, err)
	}

	resp, body = call(t, srv, http.MethodGet, "/me", sess.AccessToken, "")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"VOLTA"`)) {
		t.Fatalf("me status=%d body=%s", resp.StatusCode, body)
	}

	resp, _ = call(t, srv, http.MethodGet, "/me", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me without token status=%d", resp.StatusCode)
	}

	resp, body = call(t, srv, http.MethodGet, "/metrics", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	for _, want := range []string{"fotocopie_http_requests_total", "fotocopie_auth_events_total", "go_goroutines"} {
		if !bytes.Contains(body, []byte(want)) {
			t.Fatalf("metrics missing %s", want)
		}
	}
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	srv := newMemoryApp(t, Config{ReadinessRequireDB: true})

	resp, body := call(t, srv, http.MethodGet, "/readyz", "", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d body=%s", resp.StatusCode, body)
	}
}

func TestApp_RejectsMissingSigningKey(t *testing.T) {
	t.Setenv("FOTOCOPIE_PASETO_V4_SECRET_KEY_HEX", "")
	if _, err := New(context.Background(), Config{DBSchema: "fotocopie"}, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatalf("expected error without signing key")
	}
}

func TestPurgeOnce(t *testing.T) {
	store := session.NewMemoryStore()
	svc := session.NewService(session.DefaultConfig(), store)
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	if _, err := svc.Issue(context.Background(), now, "a3a8d1f4-5c1e-4a4b-9a49-6f0a39c1b7e2"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	log := slog.New(slog.DiscardHandler)
	purgeOnce(context.Background(), log, svc, now.Add(time.Hour))
	if store.Len() != 1 {
		t.Fatalf("live record purged")
	}

	cfg := svc.Config()
	purgeOnce(context.Background(), log, svc, now.Add(cfg.RefreshTTL+cfg.Retention+time.Minute))
	if store.Len() != 0 {
		t.Fatalf("expired record kept: %d", store.Len())
	}
}

func TestRunJanitor_StopsOnCancel(t *testing.T) {
	svc := session.NewService(session.DefaultConfig(), session.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runJanitor(ctx, slog.New(slog.DiscardHandler), svc, 5*time.Millisecond, time.Now)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runJanitor: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}
