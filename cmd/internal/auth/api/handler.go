// Package api is the HTTP transport for authentication, the tenant user
// directory and invites.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/guard"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/issuer"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/directory"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/invite"
)

// Deps are the services the handler exposes. Audit and Metrics are optional.
type Deps struct {
	Log       *slog.Logger
	Config    Config
	Issuer    *issuer.Issuer
	Guard     *guard.Validator
	Directory *directory.Service
	Invites   *invite.Service
	Audit     AuditSink
	Metrics   *Metrics
	Now       func() time.Time
}

// Handler wires HTTP routes to the auth services.
type Handler struct {
	log *slog.Logger
	cfg Config

	issuer    *issuer.Issuer
	guard     *guard.Validator
	directory *directory.Service
	invites   *invite.Service

	auditor AuditSink
	metrics *Metrics
	now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(d Deps) (*Handler, error) {
	if d.Issuer == nil || d.Guard == nil || d.Directory == nil || d.Invites == nil {
		return nil, errors.New("api: missing service")
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Config.MaxBodyBytes <= 0 {
		d.Config.MaxBodyBytes = httpjson.DefaultMaxBody
	}
	return &Handler{
		log:       d.Log,
		cfg:       d.Config,
		issuer:    d.Issuer,
		guard:     d.Guard,
		directory: d.Directory,
		invites:   d.Invites,
		auditor:   d.Audit,
		metrics:   d.Metrics,
		now:       d.Now,
	}, nil
}

// Register wires all routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("POST /auth/invites/accept", h.handleInviteAccept)

	mux.Handle("GET /me", h.guard.Wrap(h.handleMe))
	mux.Handle("GET /users", h.guard.Wrap(h.handleListUsers))
	mux.Handle("POST /users", h.guard.Wrap(h.handleCreateUser))
	mux.Handle("GET /users/{id}", h.guard.Wrap(h.handleGetUser))
	mux.Handle("PATCH /users/{id}", h.guard.Wrap(h.handleUpdateUser))
	mux.Handle("DELETE /users/{id}", h.guard.Wrap(h.handleDeleteUser))
	mux.Handle("DELETE /tenant", h.guard.Wrap(h.handleDeleteTenant))
	mux.Handle("POST /invites", h.guard.Wrap(h.handleInviteCreate))
	mux.Handle("DELETE /invites/{id}", h.guard.Wrap(h.handleInviteRevoke))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const event = "auth.login"

	var req loginRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		badRequest(w, err)
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	res, err := h.issuer.Login(r.Context(), issuer.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		IP:         ipString(ip),
	})
	if err != nil {
		h.audit(r, event+".failed", nil, nil, map[string]any{"reason": classify(err).code})
		h.fail(w, r, event, err)
		return
	}

	h.audit(r, event+".success", &res.User.TenantID, &res.User.ID, nil)
	h.metrics.observe(event, "ok")
	httpjson.WriteJSON(w, http.StatusOK, toSessionResponse(res, h.now()))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	const event = "auth.register"

	var req registerRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.issuer.Register(r.Context(), issuer.RegisterInput{
		TenantName: req.TenantName,
		TenantCode: req.TenantCode,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		h.fail(w, r, event, err)
		return
	}

	h.audit(r, event, &res.Tenant.ID, &res.User.ID, map[string]any{"tenant_code": res.Tenant.Code})
	h.metrics.observe(event, "ok")
	httpjson.WriteJSON(w, http.StatusCreated, toSessionResponse(res, h.now()))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	const event = "auth.refresh"

	var req refreshRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.issuer.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.audit(r, event+".failed", nil, nil, map[string]any{"reason": classify(err).code})
		h.fail(w, r, event, err)
		return
	}

	h.audit(r, event+".success", &res.User.TenantID, &res.User.ID, nil)
	h.metrics.observe(event, "ok")
	httpjson.WriteJSON(w, http.StatusOK, toSessionResponse(res, h.now()))
}

// handleLogout always answers 200. Revocation failures are logged only, so a
// client can always finish logging out locally.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	const event = "auth.logout"

	var req logoutRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.log.DebugContext(r.Context(), event+".bad_body", "err", err)
	} else if err := h.issuer.Logout(r.Context(), req.RefreshToken); err != nil {
		h.log.ErrorContext(r.Context(), event+".fail", "err", err)
	}

	h.audit(r, event, nil, nil, nil)
	h.metrics.observe(event, "ok")
	httpjson.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleInviteAccept(w http.ResponseWriter, r *http.Request) {
	const event = "auth.invite.accept"

	var req inviteAcceptRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		badRequest(w, err)
		return
	}

	u, err := h.invites.Accept(r.Context(), invite.AcceptInput{
		Code:     req.Code,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, event, err)
		return
	}
	res, err := h.issuer.IssueFor(r.Context(), u)
	if err != nil {
		h.fail(w, r, event, err)
		return
	}

	h.audit(r, event, &u.TenantID, &u.ID, nil)
	h.metrics.observe(event, "ok")
	httpjson.WriteJSON(w, http.StatusCreated, toSessionResponse(res, h.now()))
}
