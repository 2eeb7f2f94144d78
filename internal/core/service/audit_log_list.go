package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/pkg/metrics"
)

const auditView = "audit_logs"

// actionTones groups audit actions for display; unknown actions are neutral.
var actionTones = map[string]string{
	"LOGIN_SUCCESS": "success",
	"USER_CREATE":   "info",
	"USER_UPDATE":   "warning",
	"USER_DELETE":   "danger",
	"USER_REGISTER": "accent",
	"USER_RESTORE":  "success",
	"USER_PURGE":    "critical",
}

// ActionTone returns the display tone of an audit action.
func ActionTone(action string) string {
	if tone, ok := actionTones[action]; ok {
		return tone
	}
	return "neutral"
}

// AuditLogState is a snapshot of the audit log view.
type AuditLogState struct {
	Page     *domain.Page[domain.AuditLog] `json:"page,omitempty"`
	Current  int                           `json:"current"`
	PageSize int                           `json:"pageSize"`
	Loading  bool                          `json:"loading"`
	Error    string                        `json:"error,omitempty"`
}

// AuditLogList pages through the audit trail, newest query wins.
type AuditLogList struct {
	api ports.AuditAPI
	log zerolog.Logger

	mu      sync.Mutex
	current int
	size    int
	page    *domain.Page[domain.AuditLog]
	loading bool
	errMsg  string
	seq     uint64
}

func NewAuditLogList(api ports.AuditAPI, pageSize int, log zerolog.Logger) *AuditLogList {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &AuditLogList{api: api, size: pageSize, log: log.With().Str("view", auditView).Logger()}
}

func (l *AuditLogList) State() AuditLogState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return AuditLogState{Page: l.page, Current: l.current, PageSize: l.size, Loading: l.loading, Error: l.errMsg}
}

// Refresh fetches the current page.
func (l *AuditLogList) Refresh(ctx context.Context) error {
	return l.fetch(ctx)
}

// GoToPage moves to page n when 0 <= n < totalPages of the last fetch.
func (l *AuditLogList) GoToPage(ctx context.Context, n int) error {
	l.mu.Lock()
	if !l.page.HasPage(n) {
		l.mu.Unlock()
		return fmt.Errorf("audit logs page %d: %w", n, domain.ErrPageOutOfRange)
	}
	l.current = n
	l.mu.Unlock()
	return l.fetch(ctx)
}

func (l *AuditLogList) fetch(ctx context.Context) error {
	l.mu.Lock()
	l.seq++
	seq, page, size := l.seq, l.current, l.size
	l.loading = true
	l.mu.Unlock()

	res, err := l.api.ListAuditLogs(ctx, page, size)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		metrics.ListStaleResponsesTotal.WithLabelValues(auditView).Inc()
		return nil
	}
	l.loading = false
	metrics.ListFetchesTotal.WithLabelValues(auditView, okOrError(err)).Inc()
	if err != nil {
		l.errMsg = domain.UserMessage(err, "Failed to load audit logs")
		l.log.Warn().Err(err).Int("page", page).Msg("audit log fetch failed")
		return fmt.Errorf("fetch audit logs: %w", err)
	}
	l.page = res
	l.errMsg = ""
	return nil
}
