package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/metrics"
	"github.com/flowbit/nl2sql/internal/models"
	"github.com/flowbit/nl2sql/internal/rowconv"
	"github.com/flowbit/nl2sql/internal/security"
	"github.com/flowbit/nl2sql/internal/service"
	"github.com/flowbit/nl2sql/internal/sqltext"
	"github.com/rs/zerolog"
)

// QueryRunner executes validated SQL read-only. *service.PostgresService implements it.
type QueryRunner interface {
	ExecuteReadOnly(ctx context.Context, sql string) (*service.QueryResult, error)
}

// SQLAgent runs the question → SQL → rows pipeline for one request at a time.
// It holds no per-request state and is safe for concurrent use.
type SQLAgent struct {
	generator   SQLGenerator
	runner      QueryRunner
	sqlVal      *security.SQLValidator
	auditLogger *security.AuditLogger
	maxRows     int
}

func NewSQLAgent(
	generator SQLGenerator,
	runner QueryRunner,
	sqlVal *security.SQLValidator,
	auditLogger *security.AuditLogger,
	maxRows int,
) *SQLAgent {
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &SQLAgent{
		generator:   generator,
		runner:      runner,
		sqlVal:      sqlVal,
		auditLogger: auditLogger,
		maxRows:     maxRows,
	}
}

// Handle answers one question. Every failure is returned as an *apperr.Error.
func (a *SQLAgent) Handle(ctx context.Context, question string) (*models.ChatResponse, error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx)
	question = strings.TrimSpace(question)
	audit := security.QueryAudit{Question: question}

	resp, err := a.run(ctx, question, &audit)

	audit.ExecutionTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		appErr := apperr.As(err)
		audit.Outcome = string(appErr.Kind)
		audit.Error = appErr.Message
		metrics.ObserveOutcome(string(appErr.Kind))

		evt := logger.Warn()
		if appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindUpstreamProtocol {
			evt = logger.Error()
		}
		evt.Err(appErr.Err).Str("kind", string(appErr.Kind)).Msg(appErr.Message)
		a.auditLogger.LogQuery(ctx, audit)
		return nil, appErr
	}

	audit.Outcome = "ok"
	audit.RowCount = resp.RowCount
	metrics.ObserveOutcome("ok")
	a.auditLogger.LogQuery(ctx, audit)
	return resp, nil
}

func (a *SQLAgent) run(ctx context.Context, question string, audit *security.QueryAudit) (*models.ChatResponse, error) {
	logger := zerolog.Ctx(ctx)

	if question == "" {
		return nil, apperr.UserInput("Query cannot be empty")
	}
	logger.Debug().Str("question", question).Msg("generating sql")

	genStart := time.Now()
	raw, err := a.generator.GenerateSQL(ctx, question)
	metrics.ObserveLLMLatency(time.Since(genStart))
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal(err)
	}

	sql := sqltext.StripTrailingSemicolon(sqltext.ExtractSQL(raw))
	audit.GeneratedSQL = sql
	logger.Debug().Str("sql", sql).Msg("candidate sql")

	if reason := a.sqlVal.Validate(sql); reason != "" {
		audit.Verdict = "rejected"
		metrics.IncrementUnsafeSQL()
		logger.Warn().Str("reason", reason).Msg("generated sql rejected")
		return nil, apperr.UserInput("Generated SQL failed safety checks")
	}
	audit.Verdict = "passed"

	sql = sqltext.EnsureLimit(sql, a.maxRows)
	audit.GeneratedSQL = sql

	result, err := a.runner.ExecuteReadOnly(ctx, sql)
	if err != nil {
		if service.IsQueryError(err) {
			return nil, apperr.QueryExecution("SQL error: "+service.QueryErrorMessage(err), err)
		}
		return nil, apperr.Internal(err)
	}
	metrics.ObserveQuery(time.Duration(result.ExecutionTimeMs)*time.Millisecond, len(result.Rows))

	records := make([]rowconv.Record, 0, len(result.Rows))
	for _, row := range result.Rows {
		records = append(records, rowconv.Normalize(row))
	}

	return &models.ChatResponse{
		Query:        question,
		GeneratedSQL: sql,
		Results:      records,
		RowCount:     len(records),
	}, nil
}
