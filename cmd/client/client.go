// Package client is a Go SDK for the fotocopie API. Requests made through
// a Client carry the stored access token and survive its expiry: the first
// rejected request refreshes the session once for everybody and replays.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
)

type User struct {
	ID        string    `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Username  *string   `json:"username"`
	Email     *string   `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Tenant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Session is a login, register or refresh response.
type Session struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	ExpiresIn        int64     `json:"expires_in"`
	TokenType        string    `json:"token_type"`
	User             User      `json:"user"`
	Tenant           *Tenant   `json:"tenant,omitempty"`
}

func (s Session) tokens() Tokens {
	return Tokens{
		AccessToken:      s.AccessToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshToken:     s.RefreshToken,
		RefreshExpiresAt: s.RefreshExpiresAt,
	}
}

type Profile struct {
	User   User   `json:"user"`
	Tenant Tenant `json:"tenant"`
}

type RegisterInput struct {
	TenantName string  `json:"tenant_name"`
	TenantCode string  `json:"tenant_code"`
	Username   *string `json:"username,omitempty"`
	Email      *string `json:"email,omitempty"`
	Password   string  `json:"password"`
}

type Options struct {
	BaseURL string
	// Transport is the underlying transport. Defaults to http.DefaultTransport.
	Transport      http.RoundTripper
	Store          TokenStore
	Timeout        time.Duration
	RefreshTimeout time.Duration
	// OnLogout runs whenever the session is cleared without Logout.
	OnLogout func(error)
	Logger   *slog.Logger
	// Now is used to decide whether Resume must refresh.
	Now func() time.Time
}

type Client struct {
	base  *url.URL
	store TokenStore
	coord *Coordinator
	http  *http.Client
	raw   *http.Client
	now   func() time.Time
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", opts.BaseURL)
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	store := opts.Store
	if store == nil {
		store = &MemoryTokenStore{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		base:  base,
		store: store,
		raw:   &http.Client{Transport: transport, Timeout: timeout},
		now:   now,
	}
	c.coord = NewCoordinator(transport, store, RefresherFunc(c.refresh),
		WithRefreshTimeout(opts.RefreshTimeout),
		WithLogoutHook(opts.OnLogout),
		WithCoordinatorLogger(opts.Logger),
	)
	c.http = &http.Client{Transport: c.coord, Timeout: timeout}
	return c, nil
}

// Coordinator exposes the refresh coordinator, mainly for its counters.
func (c *Client) Coordinator() *Coordinator { return c.coord }

func (c *Client) Tokens() (Tokens, bool) { return c.store.Load() }

// Login never triggers a refresh: a rejected password is ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, identifier, password string) (Session, error) {
	var s Session
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.send(Anonymous(ctx), http.MethodPost, "/auth/login", body, &s); err != nil {
		return Session{}, err
	}
	c.store.Save(s.tokens())
	return s, nil
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (Session, error) {
	var s Session
	if err := c.send(Anonymous(ctx), http.MethodPost, "/auth/register", in, &s); err != nil {
		return Session{}, err
	}
	c.store.Save(s.tokens())
	return s, nil
}

// Logout clears local state and revokes the refresh token on a best-effort
// basis.
func (c *Client) Logout(ctx context.Context) error {
	t, ok := c.store.Load()
	c.store.Clear()
	if !ok || t.RefreshToken == "" {
		return nil
	}
	body := map[string]string{"refresh_token": t.RefreshToken}
	return c.send(Anonymous(ctx), http.MethodPost, "/auth/logout", body, nil)
}

// Resume makes sure a usable access token is stored, refreshing through the
// same single-flight gate as failed requests.
func (c *Client) Resume(ctx context.Context) error {
	t, ok := c.store.Load()
	if !ok {
		return ErrNotLoggedIn
	}
	if t.AccessToken != "" && c.now().Before(t.AccessExpiresAt) {
		return nil
	}
	_, err := c.coord.Refresh(ctx)
	return err
}

func (c *Client) Me(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.GetJSON(ctx, "/me", &p)
	return p, err
}

// Do sends req through the coordinator. Non-2xx responses are returned as is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.send(ctx, http.MethodPost, path, in, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, in, out any) error {
	return c.send(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.send(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var s Session
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.exchange(Anonymous(ctx), c.raw, http.MethodPost, "/auth/refresh", body, &s); err != nil {
		return Tokens{}, err
	}
	return s.tokens(), nil
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	err := c.exchange(ctx, c.http, method, path, in, out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == httpjson.CodeAccountDeleted {
		if _, ok := c.store.Load(); ok {
			c.coord.ForceLogout(apiErr)
		}
	}
	return err
}

func (c *Client) exchange(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apiError(resp.StatusCode, b)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}
