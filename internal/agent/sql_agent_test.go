package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flowbit/nl2sql/internal/agent"
	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/rowconv"
	"github.com/flowbit/nl2sql/internal/security"
	"github.com/flowbit/nl2sql/internal/service"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeGenerator struct {
	sql   string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateSQL(ctx context.Context, question string) (string, error) {
	f.calls++
	return f.sql, f.err
}

type fakeRunner struct {
	result   *service.QueryResult
	err      error
	executed []string
}

func (f *fakeRunner) ExecuteReadOnly(ctx context.Context, sql string) (*service.QueryResult, error) {
	f.executed = append(f.executed, sql)
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &service.QueryResult{}, nil
	}
	return f.result, nil
}

func newAgent(gen agent.SQLGenerator, runner agent.QueryRunner) *agent.SQLAgent {
	return agent.NewSQLAgent(gen, runner, security.NewSQLValidator(), security.NewAuditLogger(false), 1000)
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err: %v)", got, kind, err)
	}
}

// ─── Pipeline scenarios ───────────────────────────────────────────────────────

func TestHandleAppendsLimit(t *testing.T) {
	gen := &fakeGenerator{sql: "```sql\nSELECT * FROM \"Invoice\"\n```"}
	runner := &fakeRunner{result: &service.QueryResult{
		Columns: []string{"invoiceCode", "totalAmount"},
		Rows: []rowconv.Row{
			{{Name: "invoiceCode", Value: rowconv.Text("ABC123")}, {Name: "totalAmount", Value: rowconv.Decimal("12.50")}},
		},
	}}

	resp, err := newAgent(gen, runner).Handle(context.Background(), "Show me all invoices")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := `SELECT * FROM "Invoice" LIMIT 1000`
	if len(runner.executed) != 1 || runner.executed[0] != want {
		t.Fatalf("executed = %q, want [%q]", runner.executed, want)
	}
	if resp.GeneratedSQL != want {
		t.Errorf("GeneratedSQL = %q, want %q", resp.GeneratedSQL, want)
	}
	if resp.Query != "Show me all invoices" {
		t.Errorf("Query = %q", resp.Query)
	}
	if resp.RowCount != 1 {
		t.Fatalf("RowCount = %d, want 1", resp.RowCount)
	}
	if v, _ := resp.Results[0].Get("totalAmount"); v != 12.5 {
		t.Errorf("totalAmount = %v, want 12.5", v)
	}
}

func TestHandleRejectsUnsafeSQL(t *testing.T) {
	gen := &fakeGenerator{sql: `DELETE FROM "Invoice"`}
	runner := &fakeRunner{}

	resp, err := newAgent(gen, runner).Handle(context.Background(), "delete everything")
	wantKind(t, err, apperr.KindUserInput)
	if apperr.HTTPStatus(apperr.KindOf(err)) != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apperr.HTTPStatus(apperr.KindOf(err)))
	}
	if resp != nil {
		t.Error("no response expected for rejected SQL")
	}
	if len(runner.executed) != 0 {
		t.Errorf("rejected SQL must not execute, executed %q", runner.executed)
	}
	if strings.Contains(err.Error(), "DELETE") {
		t.Errorf("error should not echo the rejected SQL: %v", err)
	}
}

func TestHandleEmptyQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		gen := &fakeGenerator{sql: "SELECT 1"}
		runner := &fakeRunner{}

		_, err := newAgent(gen, runner).Handle(context.Background(), q)
		wantKind(t, err, apperr.KindUserInput)
		if gen.calls != 0 {
			t.Errorf("question %q: generator called %d times, want 0", q, gen.calls)
		}
		if apperr.As(err).Message != "Query cannot be empty" {
			t.Errorf("message = %q", apperr.As(err).Message)
		}
	}
}

func TestHandleProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	gen, err := agent.NewOpenAIClient(agent.GeneratorConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	runner := &fakeRunner{}

	_, err = newAgent(gen, runner).Handle(context.Background(), "Show me all invoices")
	wantKind(t, err, apperr.KindUpstreamUnavailable)
	if apperr.HTTPStatus(apperr.KindOf(err)) != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", apperr.HTTPStatus(apperr.KindOf(err)))
	}
	if len(runner.executed) != 0 {
		t.Errorf("database must not be called, executed %q", runner.executed)
	}
}

func TestHandleKeepsExistingLimit(t *testing.T) {
	gen := &fakeGenerator{sql: `SELECT name FROM "Vendor" LIMIT 5;`}
	runner := &fakeRunner{}

	resp, err := newAgent(gen, runner).Handle(context.Background(), "five vendors")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	want := `SELECT name FROM "Vendor" LIMIT 5`
	if runner.executed[0] != want {
		t.Errorf("executed = %q, want %q", runner.executed[0], want)
	}
	if resp.GeneratedSQL != want {
		t.Errorf("GeneratedSQL = %q, want %q", resp.GeneratedSQL, want)
	}
}

// ─── Error mapping ────────────────────────────────────────────────────────────

func TestHandleQueryExecutionError(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "42P01", Message: `relation "Invoices" does not exist`}
	gen := &fakeGenerator{sql: `SELECT * FROM "Invoices"`}
	runner := &fakeRunner{err: fmt.Errorf("query: %w", pgErr)}

	_, err := newAgent(gen, runner).Handle(context.Background(), "invoices")
	wantKind(t, err, apperr.KindQueryExecution)
	msg := apperr.As(err).Message
	if !strings.HasPrefix(msg, "SQL error: ") || !strings.Contains(msg, `relation "Invoices" does not exist`) {
		t.Errorf("message = %q, want database text", msg)
	}
}

func TestHandleUnexpectedExecutionError(t *testing.T) {
	gen := &fakeGenerator{sql: `SELECT 1`}
	runner := &fakeRunner{err: errors.New("acquire connection: closed pool")}

	_, err := newAgent(gen, runner).Handle(context.Background(), "one")
	wantKind(t, err, apperr.KindInternal)
	if msg := apperr.As(err).Message; strings.Contains(msg, "closed pool") {
		t.Errorf("internal message should be generic, got %q", msg)
	}
}

func TestHandlePropagatesGeneratorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"upstream error", apperr.UpstreamError(429, "LLM provider error (429): rate limited"), apperr.KindUpstreamError},
		{"protocol", apperr.UpstreamProtocol("unexpected LLM provider response", nil), apperr.KindUpstreamProtocol},
		{"unavailable", apperr.UpstreamUnavailable("failed to connect to LLM provider", errors.New("refused")), apperr.KindUpstreamUnavailable},
		{"untyped", errors.New("generator exploded"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			_, err := newAgent(&fakeGenerator{err: tt.err}, runner).Handle(context.Background(), "q")
			wantKind(t, err, tt.kind)
			if len(runner.executed) != 0 {
				t.Error("database must not be called after a generation failure")
			}
		})
	}
}

func TestHandleStripsAllTrailingSemicolons(t *testing.T) {
	runner := &fakeRunner{}
	_, err := newAgent(&fakeGenerator{sql: "SELECT 1 LIMIT 1;;"}, runner).Handle(context.Background(), "q")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if runner.executed[0] != "SELECT 1 LIMIT 1" {
		t.Errorf("executed = %q", runner.executed[0])
	}
}

func TestHandleEmptyResultEncodesAsArray(t *testing.T) {
	resp, err := newAgent(&fakeGenerator{sql: "SELECT 1"}, &fakeRunner{}).Handle(context.Background(), "q")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	b, _ := json.Marshal(resp)
	if !strings.Contains(string(b), `"results":[]`) {
		t.Errorf("json = %s, want empty results array", b)
	}
}
