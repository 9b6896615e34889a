package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/directory"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/invite"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/tenant"
)

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}
	p, err := h.directory.Me(r.Context(), sc)
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, meResponse{User: toUserResponse(p.User), Tenant: toTenantResponse(p.Tenant)})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "users.list", err)
		return
	}

	q := identity.ListUsersQuery{Search: r.URL.Query().Get("q")}
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		badRequest(w, err)
		return
	}
	if q.Offset, err = queryInt(r, "offset"); err != nil {
		badRequest(w, err)
		return
	}

	page, err := h.directory.List(r.Context(), sc, q)
	if err != nil {
		h.fail(w, r, "users.list", err)
		return
	}

	out := userListResponse{Users: make([]userResponse, 0, len(page.Users)), Total: page.Total, Offset: max(q.Offset, 0)}
	out.Limit = q.Limit
	if out.Limit <= 0 {
		out.Limit = identity.DefaultPageSize
	}
	out.Limit = min(out.Limit, identity.MaxPageSize)
	for _, u := range page.Users {
		out.Users = append(out.Users, toUserResponse(u))
	}
	httpjson.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "users.get", err)
		return
	}
	u, err := h.directory.Get(r.Context(), sc, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "users.get", err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "users.create", err)
		return
	}
	var req createUserRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		badRequest(w, err)
		return
	}

	role, _ := identity.ParseRole(req.Role)
	u, err := h.directory.Create(r.Context(), sc, directory.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, "users.create", err)
		return
	}
	h.audit(r, "users.create", &sc.TenantID, &sc.UserID, map[string]any{"target": u.ID})
	httpjson.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "users.update", err)
		return
	}
	var req updateUserRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		badRequest(w, err)
		return
	}

	in := directory.UpdateInput{Username: req.Username, Email: req.Email, Password: req.Password}
	if req.Role != nil {
		role, _ := identity.ParseRole(*req.Role)
		in.Role = &role
	}
	u, err := h.directory.Update(r.Context(), sc, r.PathValue("id"), in)
	if err != nil {
		h.fail(w, r, "users.update", err)
		return
	}
	h.audit(r, "users.update", &sc.TenantID, &sc.UserID, map[string]any{"target": u.ID})
	httpjson.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "users.delete", err)
		return
	}
	id := r.PathValue("id")
	if err := h.directory.Delete(r.Context(), sc, id); err != nil {
		h.fail(w, r, "users.delete", err)
		return
	}
	h.audit(r, "users.delete", &sc.TenantID, &sc.UserID, map[string]any{"target": id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "tenant.delete", err)
		return
	}
	if err := h.directory.DeleteTenant(r.Context(), sc); err != nil {
		h.fail(w, r, "tenant.delete", err)
		return
	}
	h.audit(r, "tenant.delete", &sc.TenantID, &sc.UserID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInviteCreate(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "invites.create", err)
		return
	}
	var req inviteCreateRequest
	if r.ContentLength != 0 {
		if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			badRequest(w, err)
			return
		}
	}

	inv, code, err := h.invites.Create(r.Context(), sc, invite.CreateInput{
		TTL:     time.Duration(req.TTLSeconds) * time.Second,
		MaxUses: req.MaxUses,
	})
	if err != nil {
		h.fail(w, r, "invites.create", err)
		return
	}
	h.audit(r, "invites.create", &sc.TenantID, &sc.UserID, map[string]any{"invite_id": inv.ID})
	httpjson.WriteJSON(w, http.StatusCreated, inviteCreateResponse{
		InviteID:  inv.ID,
		Code:      code,
		ExpiresAt: inv.ExpiresAt,
		MaxUses:   inv.MaxUses,
	})
}

func (h *Handler) handleInviteRevoke(w http.ResponseWriter, r *http.Request) {
	sc, err := tenant.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "invites.revoke", err)
		return
	}
	id := r.PathValue("id")
	if err := h.invites.Revoke(r.Context(), sc, id); err != nil {
		h.fail(w, r, "invites.revoke", err)
		return
	}
	h.audit(r, "invites.revoke", &sc.TenantID, &sc.UserID, map[string]any{"invite_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &queryError{key: key}
	}
	return n, nil
}

type queryError struct{ key string }

func (e *queryError) Error() string { return e.key + ": must be a non-negative integer" }
