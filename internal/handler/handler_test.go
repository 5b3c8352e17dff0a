package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/handler"
	"github.com/flowbit/nl2sql/internal/models"
	"github.com/flowbit/nl2sql/internal/rowconv"
)

type fakeAgent struct {
	resp     *models.ChatResponse
	err      error
	question string
	calls    int
}

func (f *fakeAgent) Handle(ctx context.Context, question string) (*models.ChatResponse, error) {
	f.calls++
	f.question = question
	return f.resp, f.err
}

func postQuery(h *handler.QueryHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Query(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var e models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

// ─── POST /query ──────────────────────────────────────────────────────────────

func TestQuerySuccess(t *testing.T) {
	fa := &fakeAgent{resp: &models.ChatResponse{
		Query:        "Show me all invoices",
		GeneratedSQL: `SELECT * FROM "Invoice" LIMIT 1000`,
		Results: []rowconv.Record{rowconv.Normalize(rowconv.Row{
			{Name: "invoiceCode", Value: rowconv.Text("ABC123")},
		})},
		RowCount: 1,
	}}
	rr := postQuery(handler.NewQueryHandler(fa), `{"query":"  Show me all invoices "}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if fa.question != "Show me all invoices" {
		t.Errorf("question passed = %q, want trimmed", fa.question)
	}
	var got map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["generated_sql"] != `SELECT * FROM "Invoice" LIMIT 1000` || got["row_count"] != float64(1) {
		t.Errorf("unexpected body: %v", got)
	}
}

func TestQueryInvalidJSON(t *testing.T) {
	fa := &fakeAgent{}
	rr := postQuery(handler.NewQueryHandler(fa), `{"query":`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if fa.calls != 0 {
		t.Error("agent must not be called for an invalid body")
	}
	if e := decodeError(t, rr); e.Status != "error" || e.Error == "" {
		t.Errorf("unexpected error body: %+v", e)
	}
}

func TestQueryErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"empty", apperr.UserInput("Query cannot be empty"), 400, "Query cannot be empty"},
		{"unsafe", apperr.UserInput("Generated SQL failed safety checks"), 400, "Generated SQL failed safety checks"},
		{"sql error", apperr.QueryExecution(`SQL error: relation "x" does not exist`, nil), 400, `SQL error: relation "x" does not exist`},
		{"unavailable", apperr.UpstreamUnavailable("failed to connect to LLM provider", errors.New("timeout")), 503, "failed to connect to LLM provider"},
		{"upstream", apperr.UpstreamError(429, "LLM provider error (429): rate limited"), 502, "LLM provider error (429): rate limited"},
		{"protocol", apperr.UpstreamProtocol("unexpected LLM provider response", nil), 500, "unexpected LLM provider response"},
		{"foreign", errors.New("boom"), 500, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postQuery(handler.NewQueryHandler(&fakeAgent{err: tt.err}), `{"query":"q"}`)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			e := decodeError(t, rr)
			if e.Error != tt.message {
				t.Errorf("error = %q, want %q", e.Error, tt.message)
			}
			if e.Code != tt.status {
				t.Errorf("code = %d, want %d", e.Code, tt.status)
			}
		})
	}
}

func TestQueryIgnoresClientCancellation(t *testing.T) {
	var seen error
	fa := &ctxAgent{fn: func(ctx context.Context) { seen = ctx.Err() }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"q"}`)).WithContext(ctx)
	handler.NewQueryHandler(fa).Query(httptest.NewRecorder(), req)

	if seen != nil {
		t.Errorf("pipeline context should not inherit client cancellation, got %v", seen)
	}
}

type ctxAgent struct {
	fn func(ctx context.Context)
}

func (c *ctxAgent) Handle(ctx context.Context, question string) (*models.ChatResponse, error) {
	c.fn(ctx)
	return &models.ChatResponse{Results: []rowconv.Record{}}, nil
}

// ─── GET /health ──────────────────────────────────────────────────────────────

type fakeDB struct{ err error }

func (f fakeDB) TestConnection(ctx context.Context) error { return f.err }

func TestHealthOK(t *testing.T) {
	rr := httptest.NewRecorder()
	handler.NewHealthHandler(fakeDB{}).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got map[string]string
	json.NewDecoder(rr.Body).Decode(&got)
	if got["status"] != "ok" || got["database"] != "connected" {
		t.Errorf("body = %v", got)
	}
}

func TestHealthProbeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	handler.NewHealthHandler(fakeDB{err: errors.New("connection refused")}).
		Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when the probe fails", rr.Code)
	}
	var got map[string]string
	json.NewDecoder(rr.Body).Decode(&got)
	if got["status"] != "error" || !strings.Contains(got["error"], "connection refused") {
		t.Errorf("body = %v", got)
	}
	if _, ok := got["database"]; ok {
		t.Error("database field should be absent on failure")
	}
}

// blockingDB holds every probe until release is closed
type blockingDB struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingDB) TestConnection(ctx context.Context) error {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	<-b.release
	return nil
}

func TestHealthConcurrentProbesShareOneRoundTrip(t *testing.T) {
	db := &blockingDB{started: make(chan struct{}), release: make(chan struct{})}
	h := handler.NewHealthHandler(db)

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := httptest.NewRecorder()
			h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			codes[i] = rr.Code
		}(i)
	}

	<-db.started
	// let the remaining requests join the in-flight probe
	time.Sleep(100 * time.Millisecond)
	close(db.release)
	wg.Wait()

	if got := db.calls.Load(); got != 1 {
		t.Errorf("probe calls = %d, want 1", got)
	}
	for i, c := range codes {
		if c != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, c)
		}
	}
}

// ─── GET / ────────────────────────────────────────────────────────────────────

func TestRoot(t *testing.T) {
	rr := httptest.NewRecorder()
	handler.Root(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	var info models.ServiceInfo
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Service == "" || info.Endpoints["POST /query"] == "" {
		t.Errorf("unexpected service info: %+v", info)
	}
}
