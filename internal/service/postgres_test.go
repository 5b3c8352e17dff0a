package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/flowbit/nl2sql/internal/service"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsQueryError(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "42P01", Message: `relation "Invoices" does not exist`}

	if !service.IsQueryError(pgErr) {
		t.Error("PgError should be a query error")
	}
	if !service.IsQueryError(fmt.Errorf("query: %w", pgErr)) {
		t.Error("wrapped PgError should be a query error")
	}
	if service.IsQueryError(errors.New("acquire connection: closed pool")) {
		t.Error("plain error should not be a query error")
	}
	if service.IsQueryError(context.DeadlineExceeded) {
		t.Error("deadline should not be a query error")
	}
}

func TestSessionSetupIsNotQueryError(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "22023", Message: `-1 ms is outside the valid range for parameter "statement_timeout"`}
	err := fmt.Errorf("%w: set statement timeout: %w", service.ErrSessionSetup, pgErr)

	if service.IsQueryError(err) {
		t.Error("session setup failure must not be reported as a query error")
	}
	var got *pgconn.PgError
	if !errors.As(err, &got) || got.Code != "22023" {
		t.Error("database error should stay reachable for logging")
	}
}

func TestQueryErrorMessage(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "42703", Message: `column "foo" does not exist`}
	msg := service.QueryErrorMessage(fmt.Errorf("query: %w", pgErr))
	if !strings.Contains(msg, `column "foo" does not exist`) {
		t.Errorf("message should carry the database text, got %q", msg)
	}
	if strings.HasPrefix(msg, "query:") {
		t.Errorf("message should not carry wrapping context, got %q", msg)
	}
}

func TestNewPostgresServiceRequiresDSN(t *testing.T) {
	_, err := service.NewPostgresService(context.Background(), service.PoolConfig{})
	if err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestNewPostgresServiceRejectsBadDSN(t *testing.T) {
	_, err := service.NewPostgresService(context.Background(), service.PoolConfig{DSN: "postgres://%zz"})
	if err == nil {
		t.Fatal("expected error for malformed dsn")
	}
}
