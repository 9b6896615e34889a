package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/issuer"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/session"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/httpjson"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/invite"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/ratelimit"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/tenant"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/password"
)

// failure is the wire form of a service error.
type failure struct {
	status int
	code   string
	msg    string
}

// classify maps service errors to HTTP. Anything unknown is a 500.
func classify(err error) failure {
	switch {
	case errors.Is(err, issuer.ErrInvalidCredentials):
		return failure{http.StatusUnauthorized, httpjson.CodeInvalidCredentials, "invalid credentials"}
	case errors.Is(err, issuer.ErrAccountDeleted):
		return failure{http.StatusUnauthorized, httpjson.CodeAccountDeleted, "account no longer exists"}
	case errors.Is(err, session.ErrTokenNotFound):
		return failure{http.StatusUnauthorized, httpjson.CodeTokenNotFound, "refresh token not recognized"}
	case errors.Is(err, session.ErrTokenRevoked):
		return failure{http.StatusUnauthorized, httpjson.CodeTokenRevoked, "refresh token revoked"}
	case errors.Is(err, session.ErrTokenExpired):
		return failure{http.StatusUnauthorized, httpjson.CodeTokenExpired, "refresh token expired"}
	case errors.Is(err, tenant.ErrNoScope):
		return failure{http.StatusUnauthorized, httpjson.CodeMissingCredential, "missing bearer credential"}
	case errors.Is(err, tenant.ErrTenantMismatch), identity.IsNotFound(err):
		return failure{http.StatusNotFound, httpjson.CodeNotFound, "not found"}
	case errors.Is(err, tenant.ErrForbidden):
		return failure{http.StatusForbidden, httpjson.CodeForbidden, "forbidden"}
	case errors.Is(err, invite.ErrInvalidInvite):
		return failure{http.StatusBadRequest, httpjson.CodeInvalidInvite, "invalid or expired invite"}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return failure{http.StatusTooManyRequests, httpjson.CodeRateLimited, "too many attempts"}
	case identity.IsConflict(err):
		return failure{http.StatusConflict, httpjson.CodeConflict, conflictMessage(identity.ConflictField(err))}
	case identity.IsInvalidInput(err):
		return failure{http.StatusBadRequest, httpjson.CodeInvalidRequest, identity.InvalidMessage(err)}
	case errors.Is(err, password.ErrPasswordTooShort),
		errors.Is(err, password.ErrPasswordTooLong),
		errors.Is(err, password.ErrWeakPassword):
		return failure{http.StatusBadRequest, httpjson.CodeInvalidRequest, err.Error()}
	default:
		return failure{http.StatusInternalServerError, httpjson.CodeInternal, "internal error"}
	}
}

func conflictMessage(field string) string {
	if field == "" {
		return "already exists"
	}
	return field + " already exists"
}

// fail writes err and records the outcome. Internal errors are logged, never echoed.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, event string, err error) {
	f := classify(err)
	h.metrics.observe(event, f.code)

	if f.status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), event+".fail", "err", err)
	}
	if f.status == http.StatusTooManyRequests {
		if d := ratelimit.RetryAfter(err); d > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(int64(d.Seconds()+0.999), 10))
		}
	}
	httpjson.WriteError(w, f.status, f.code, f.msg)
}

func badRequest(w http.ResponseWriter, err error) {
	httpjson.WriteError(w, http.StatusBadRequest, httpjson.CodeInvalidRequest, err.Error())
}
