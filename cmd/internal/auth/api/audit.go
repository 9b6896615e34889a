package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity/ids"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/schema"
)

// AuditEvent is one security-relevant action. Secrets never appear here.
type AuditEvent struct {
	Action    string
	TenantID  *int64
	UserID    *string
	IP        net.IP
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// AuditSink records audit events. Implementations must not fail the request.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// LogAudit writes audit events to a logger.
type LogAudit struct {
	Log *slog.Logger
}

func (a LogAudit) Record(ctx context.Context, ev AuditEvent) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	attrs := []any{"action", ev.Action, "ip", ipString(ev.IP)}
	if ev.TenantID != nil {
		attrs = append(attrs, "tenant_id", *ev.TenantID)
	}
	if ev.UserID != nil {
		attrs = append(attrs, "user_id", *ev.UserID)
	}
	for k, v := range ev.Meta {
		attrs = append(attrs, k, v)
	}
	log.InfoContext(ctx, "audit", attrs...)
}

// PostgresAudit inserts audit events into the audit_log table.
type PostgresAudit struct {
	pool  *pgxpool.Pool
	table string
	log   *slog.Logger
}

// NewPostgresAudit builds a PostgresAudit for the given schema.
func NewPostgresAudit(pool *pgxpool.Pool, schemaName string, log *slog.Logger) (*PostgresAudit, error) {
	if pool == nil {
		return nil, fmt.Errorf("audit: nil pool")
	}
	if !schema.Valid(schemaName) {
		return nil, fmt.Errorf("audit: invalid schema %q", schemaName)
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAudit{pool: pool, table: schema.Table(schemaName, "audit_log"), log: log}, nil
}

func (a *PostgresAudit) Record(ctx context.Context, ev AuditEvent) {
	id, err := ids.NewULID(ev.At)
	if err != nil {
		a.log.Error("auth.audit.id.fail", "err", err, "action", ev.Action)
		return
	}

	meta := "{}"
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			meta = string(b)
		}
	}
	var ip any
	if ev.IP != nil {
		ip = ev.IP.String()
	}

	_, err = a.pool.Exec(context.WithoutCancel(ctx), `
		INSERT INTO `+a.table+` (id, tenant_id, user_id, action, ip, user_agent, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
	`, id, ev.TenantID, ev.UserID, ev.Action, ip, trimOrNil(ev.UserAgent), meta, ev.At)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "action", ev.Action)
	}
}

func (h *Handler) audit(r *http.Request, action string, tenantID *int64, userID *string, meta map[string]any) {
	if h.auditor == nil {
		return
	}
	h.auditor.Record(r.Context(), AuditEvent{
		Action:    action,
		TenantID:  tenantID,
		UserID:    userID,
		IP:        clientIP(r, h.cfg.TrustProxy),
		UserAgent: r.UserAgent(),
		Meta:      meta,
		At:        h.now(),
	})
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
