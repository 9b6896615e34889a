package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
)

const (
	defaultRefreshTimeout = 10 * time.Second
	maxErrorBody          = 64 << 10
)

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (Tokens, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return f(ctx, refreshToken)
}

type anonymousKey struct{}

// Anonymous marks a request that must not carry the stored access token.
// Its 401 responses are returned untouched.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

type outcome struct {
	access string
	err    error
}

// Coordinator is an http.RoundTripper that attaches the stored access token
// and recovers from authentication failures. Concurrent failures share a
// single refresh; each request is replayed at most once.
type Coordinator struct {
	base      http.RoundTripper
	store     TokenStore
	refresher Refresher
	timeout   time.Duration
	onLogout  func(error)
	log       *slog.Logger

	mu         sync.Mutex
	refreshing bool
	waiters    []chan outcome

	refreshes atomic.Int64
}

type CoordinatorOption func(*Coordinator)

func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogoutHook is called after local state is cleared by a failed refresh
// or a deleted account.
func WithLogoutHook(fn func(error)) CoordinatorOption {
	return func(c *Coordinator) { c.onLogout = fn }
}

func WithCoordinatorLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

func NewCoordinator(base http.RoundTripper, store TokenStore, refresher Refresher, opts ...CoordinatorOption) *Coordinator {
	if base == nil {
		base = http.DefaultTransport
	}
	c := &Coordinator{
		base:      base,
		store:     store,
		refresher: refresher,
		timeout:   defaultRefreshTimeout,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refreshes reports how many refresh calls this coordinator has made.
func (c *Coordinator) Refreshes() int64 { return c.refreshes.Load() }

func (c *Coordinator) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	sent := ""
	if !isAnonymous(req.Context()) && req.Header.Get("Authorization") == "" {
		if t, ok := c.store.Load(); ok && t.AccessToken != "" {
			sent = t.AccessToken
		}
	}

	first, err := withBearer(req, sent)
	if err != nil {
		return nil, err
	}
	resp, err := c.base.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || sent == "" {
		return resp, err
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	failure := apiError(resp.StatusCode, body)
	if failure.Code == httpjson.CodeAccountDeleted {
		c.ForceLogout(failure)
		return nil, failure
	}

	access, err := c.fresh(req.Context(), sent)
	if err != nil {
		return nil, err
	}
	replay, err := withBearer(req, access)
	if err != nil {
		return nil, err
	}
	return c.base.RoundTrip(replay)
}

// Refresh forces a refresh unless another caller already replaced the
// current access token. It joins a refresh already in flight.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	t, ok := c.store.Load()
	if !ok {
		return "", ErrNotLoggedIn
	}
	return c.fresh(ctx, t.AccessToken)
}

// ForceLogout clears local state and notifies the logout hook.
func (c *Coordinator) ForceLogout(cause error) {
	c.mu.Lock()
	c.store.Clear()
	c.mu.Unlock()
	c.log.Info("session cleared", "err", cause)
	if c.onLogout != nil {
		c.onLogout(cause)
	}
}

// fresh returns an access token newer than stale. The first caller to find
// no refresh in flight leads it; everyone else waits in arrival order and
// gets the same outcome.
func (c *Coordinator) fresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if t, ok := c.store.Load(); ok && t.AccessToken != "" && t.AccessToken != stale {
		c.mu.Unlock()
		return t.AccessToken, nil
	}
	ch := make(chan outcome, 1)
	c.waiters = append(c.waiters, ch)
	if c.refreshing {
		c.mu.Unlock()
		o := <-ch
		return o.access, o.err
	}
	c.refreshing = true
	current, _ := c.store.Load()
	c.mu.Unlock()

	c.lead(ctx, current.RefreshToken)
	o := <-ch
	return o.access, o.err
}

func (c *Coordinator) lead(ctx context.Context, refreshToken string) {
	var (
		next Tokens
		err  error
	)
	if refreshToken == "" {
		err = sessionExpired(nil)
	} else {
		c.refreshes.Add(1)
		// Waiters depend on this call, so it outlives the leader's context.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		next, err = c.refresher.Refresh(rctx, refreshToken)
		cancel()
		if err == nil && next.AccessToken == "" {
			err = errors.New("refresh returned no access token")
		}
		if err != nil {
			err = sessionExpired(err)
		}
	}

	var o outcome
	c.mu.Lock()
	if err == nil {
		if next.RefreshToken == "" {
			next.RefreshToken = refreshToken
		}
		c.store.Save(next)
		o.access = next.AccessToken
	} else {
		c.store.Clear()
		o.err = err
	}
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- o
	}
	if err != nil {
		c.log.Info("refresh failed, session cleared", "err", err)
		if c.onLogout != nil {
			c.onLogout(err)
		}
	}
}

func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func withBearer(req *http.Request, access string) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	if access != "" {
		r.Header.Set("Authorization", "Bearer "+access)
	}
	return r, nil
}
