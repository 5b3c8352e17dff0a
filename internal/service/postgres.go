package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbit/nl2sql/internal/rowconv"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PoolConfig sizes and bounds the connection pool
type PoolConfig struct {
	DSN            string
	MinConns       int32
	MaxConns       int32
	ConnectTimeout time.Duration
	// StatementTimeout is applied per query when > 0
	StatementTimeout time.Duration
}

// ErrSessionSetup marks a failure to prepare the transaction before the query
// runs. Such failures are configuration faults, never query errors.
var ErrSessionSetup = errors.New("session setup failed")

// PostgresService owns the process-wide connection pool
type PostgresService struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// NewPostgresService creates the pool and verifies the database is reachable.
// The caller must Close it on shutdown.
func NewPostgresService(ctx context.Context, cfg PoolConfig) (*PostgresService, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Int32("min_conns", poolCfg.MinConns).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("database pool ready")

	return &PostgresService{
		pool:             pool,
		statementTimeout: cfg.StatementTimeout,
	}, nil
}

// NewPostgresServiceFromPool wraps an existing pool
func NewPostgresServiceFromPool(pool *pgxpool.Pool, statementTimeout time.Duration) *PostgresService {
	return &PostgresService{pool: pool, statementTimeout: statementTimeout}
}

// Close releases every pooled connection
func (s *PostgresService) Close() {
	s.pool.Close()
}

// Pool returns the underlying pool
func (s *PostgresService) Pool() *pgxpool.Pool {
	return s.pool
}

// Stat exposes pool accounting for metrics
func (s *PostgresService) Stat() *pgxpool.Stat {
	return s.pool.Stat()
}

// TestConnection runs a trivial probe through the pool
func (s *PostgresService) TestConnection(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}

// QueryResult holds the rows of one executed query in database order
type QueryResult struct {
	Columns         []string
	Rows            []rowconv.Row
	ExecutionTimeMs int64
}

// ExecuteReadOnly runs sql in a read-only transaction on a pooled connection.
// The connection is released and the transaction ended on every path.
func (s *PostgresService) ExecuteReadOnly(ctx context.Context, sql string) (*QueryResult, error) {
	return s.QueryReadOnly(ctx, sql)
}

// QueryReadOnly is ExecuteReadOnly with bind parameters
func (s *PostgresService) QueryReadOnly(ctx context.Context, sql string, args ...any) (*QueryResult, error) {
	start := time.Now()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warn().Err(rbErr).Msg("rollback read-only transaction")
		}
	}()

	if s.statementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", s.statementTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%w: set statement timeout: %w", ErrSessionSetup, err)
		}
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	columns := make([]string, len(fds))
	for i, fd := range fds {
		columns[i] = fd.Name
	}

	var out []rowconv.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(rowconv.Row, len(vals))
		for i, v := range vals {
			row[i] = rowconv.Field{Name: columns[i], Value: rowconv.FromPgx(fds[i].DataTypeOID, v)}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return &QueryResult{
		Columns:         columns,
		Rows:            out,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// IsQueryError reports whether err was raised by the database for the SQL
// itself (syntax, missing relation, type mismatch, read-only violation)
func IsQueryError(err error) bool {
	if errors.Is(err, ErrSessionSetup) {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

// QueryErrorMessage returns the database's message for a query error
func QueryErrorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Error()
	}
	return err.Error()
}
