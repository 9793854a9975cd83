// Package sql implements the SqlConnector contract against a real Postgres
// database via pgx/v5's pgxpool. The pool enforces
// default_transaction_read_only and statement_timeout on every connection
// it hands out, and resets both before the connection returns to the pool,
// so no connection can leak a writable or unbounded session back in.
package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/model"
)

// Config bounds the pool this connector opens.
type Config struct {
	DSN              string
	MaxConns         int32
	StatementTimeout time.Duration
}

// Connector is the pgx-backed connectors.SqlConnector.
type Connector struct {
	pool *pgxpool.Pool
	cfg  Config
}

// Logger is the minimal event-channel used to report reset failures, which
// are warnings, not request failures.
type Logger interface {
	Warn(ctx context.Context, msg string, keyvals ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(context.Context, string, ...any) {}

// New opens a pgxpool against cfg.DSN with AfterConnect/BeforeAcquire/
// AfterRelease hooks that enforce and reset the read-only/timeout
// invariant on every borrowed connection.
func New(ctx context.Context, cfg Config, logger Logger) (*Connector, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.StatementTimeout == 0 {
		cfg.StatementTimeout = 30 * time.Second
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql connector: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf(
			"SET default_transaction_read_only = ON; SET statement_timeout = %d",
			cfg.StatementTimeout.Milliseconds()))
		return err
	}
	poolCfg.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		if _, err := conn.Exec(ctx, fmt.Sprintf(
			"SET default_transaction_read_only = ON; SET statement_timeout = %d",
			cfg.StatementTimeout.Milliseconds())); err != nil {
			logger.Warn(ctx, "sql connector: failed to enforce read-only/statement timeout before acquire", "error", err.Error())
			return false
		}
		return true
	}
	poolCfg.AfterRelease = func(conn *pgx.Conn) bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, "RESET ALL"); err != nil {
			logger.Warn(ctx, "sql connector: failed to reset connection state after release", "error", err.Error())
		}
		return true
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("sql connector: create pool: %w", err)
	}
	return &Connector{pool: pool, cfg: cfg}, nil
}

// Query executes a single, already-gated SELECT statement and returns its
// rows as a slice of column-name-keyed maps.
func (c *Connector) Query(ctx context.Context, in connectors.SqlQueryInput) (connectors.SqlQueryOutput, error) {
	rows, err := c.pool.Query(ctx, in.SQL)
	if err != nil {
		return connectors.SqlQueryOutput{}, fmt.Errorf("sql connector: query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return connectors.SqlQueryOutput{}, fmt.Errorf("sql connector: read row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
		if in.MaxRows > 0 && len(out) >= in.MaxRows {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return connectors.SqlQueryOutput{}, fmt.Errorf("sql connector: row iteration: %w", err)
	}

	checksum, _ := model.Checksum(out)
	return connectors.SqlQueryOutput{
		Columns:   columns,
		Rows:      out,
		RowCount:  len(out),
		Checksum:  checksum,
		Truncated: in.MaxRows > 0 && len(out) >= in.MaxRows,
	}, nil
}

// TestConnection pings the pool.
func (c *Connector) TestConnection(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Disconnect closes the pool. Idempotent.
func (c *Connector) Disconnect(context.Context) error {
	c.pool.Close()
	return nil
}
