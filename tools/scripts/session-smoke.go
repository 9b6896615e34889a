// Package main is a CI-friendly smoke test for the session lifecycle of a
// running fotocopie server.
//
// It validates:
//   - register and login
//   - concurrent requests with a stale access token share one refresh
//   - the rotated-out refresh token is rejected as revoked
//   - logout revokes the current refresh token
//   - a wrong password never triggers a refresh
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/client"
)

const (
	smokePassword    = "smoke-Fotocopie-2025!"
	codeTokenRevoked = "token_revoked"
)

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "server base URL")
		n       = flag.Int("n", 5, "concurrent requests after the access token goes stale")
		timeout = flag.Duration("timeout", 10*time.Second, "overall timeout")
		verbose = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if *n < 2 {
		fatalf("-n must be at least 2")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := &client.MemoryTokenStore{}
	c, err := client.New(client.Options{BaseURL: *baseURL, Store: store, Timeout: *timeout})
	if err != nil {
		fatalf("client: %v", err)
	}

	code := fmt.Sprintf("SMK%07d", time.Now().UnixNano()%10_000_000)
	username := "smoke-" + strings.ToLower(code)
	if _, err := c.Register(ctx, client.RegisterInput{
		TenantName: "Smoke " + code,
		TenantCode: code,
		Username:   &username,
		Password:   smokePassword,
	}); err != nil {
		fatalf("register: %v", err)
	}
	s0, err := c.Login(ctx, username, smokePassword)
	if err != nil {
		fatalf("login: %v", err)
	}
	logf(*verbose, "logged in: user=%s tenant=%s", s0.User.ID, code)

	// Stand in for an expired access token without waiting for its TTL.
	stale, _ := store.Load()
	stale.AccessToken = "stale." + stale.AccessToken
	store.Save(stale)

	g, gctx := errgroup.WithContext(ctx)
	for range *n {
		g.Go(func() error {
			var p client.Profile
			if err := c.GetJSON(gctx, "/me", &p); err != nil {
				return err
			}
			if p.User.ID != s0.User.ID {
				return fmt.Errorf("me returned user %s", p.User.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("concurrent requests: %v", err)
	}
	if got := c.Coordinator().Refreshes(); got != 1 {
		fatalf("single flight: %d refreshes for %d requests", got, *n)
	}
	logf(*verbose, "%d requests recovered with one refresh", *n)

	if got := rawRefresh(ctx, *baseURL, s0.RefreshToken); got != codeTokenRevoked {
		fatalf("reuse of rotated refresh token: got %q want %q", got, codeTokenRevoked)
	}

	current, _ := store.Load()
	if err := c.Logout(ctx); err != nil {
		fatalf("logout: %v", err)
	}
	if got := rawRefresh(ctx, *baseURL, current.RefreshToken); got != codeTokenRevoked {
		fatalf("refresh after logout: got %q want %q", got, codeTokenRevoked)
	}

	if _, err := c.Login(ctx, username, "wrong-"+smokePassword); !errors.Is(err, client.ErrInvalidCredentials) {
		fatalf("bad login: got %v want invalid credentials", err)
	}
	if got := c.Coordinator().Refreshes(); got != 1 {
		fatalf("bad login triggered a refresh")
	}

	fmt.Printf("OK: tenant=%s user=%s concurrent=%d refreshes=1\n", code, s0.User.ID, *n)
}

// rawRefresh posts a refresh token outside the client and returns the error
// code, or "" on success.
func rawRefresh(ctx context.Context, baseURL, refreshToken string) string {
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		fatalf("refresh request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("refresh: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return ""
	}
	var er struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&er)
	return er.Error.Code
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func logf(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
