package security

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog"
)

// AuditLogger logs one event per question with hashed question and SQL text
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// QueryAudit describes the outcome of one pipeline run
type QueryAudit struct {
	Question        string
	GeneratedSQL    string
	Verdict         string // "passed", "rejected" or "" when validation was not reached
	RowCount        int
	ExecutionTimeMs int64
	Outcome         string // "ok" or an error kind
	Error           string
}

// LogQuery records a natural-language query event on the request's logger
func (a *AuditLogger) LogQuery(ctx context.Context, q QueryAudit) {
	if !a.enabled {
		return
	}
	sqlHash := ""
	if q.GeneratedSQL != "" {
		sqlHash = hashStr(q.GeneratedSQL)[:16]
	}

	evt := zerolog.Ctx(ctx).Info().
		Str("event", "query_audit").
		Str("question_hash", hashStr(q.Question)[:16]).
		Str("sql_hash", sqlHash).
		Str("sql_validation", q.Verdict).
		Int("row_count", q.RowCount).
		Int64("execution_time_ms", q.ExecutionTimeMs).
		Str("outcome", q.Outcome)

	if q.Error != "" {
		evt = evt.Str("error", q.Error)
	}
	evt.Msg("audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
