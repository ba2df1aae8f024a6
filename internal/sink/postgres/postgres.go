// Package postgres persists normalized rows into a Postgres table using pgx
// v5. Rows are accumulated into batches and flushed with COPY, the fastest
// bulk path Postgres offers.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"xlcsv/internal/config"
)

// DefaultBatchSize is used when the pipeline does not set runtime.batch_size.
const DefaultBatchSize = 5000

// Writer buffers rows and flushes them with COPY.
type Writer struct {
	pool      *pgxpool.Pool
	cfg       config.DBConfig
	batchSize int
	batch     [][]any
}

// New connects to Postgres, optionally creates the destination table, and
// returns a Writer. cfg.Table may be schema-qualified ("public.rows").
func New(ctx context.Context, cfg config.DBConfig, batchSize int) (*Writer, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("postgres: columns must not be empty")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if cfg.AutoCreateTable {
		if _, err := pool.Exec(ctx, createTableSQL(cfg.Table, cfg.Columns)); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: create table: %w", err)
		}
	}

	return &Writer{pool: pool, cfg: cfg, batchSize: batchSize}, nil
}

// WriteRow buffers one row, fitted to the configured column count, and
// flushes when the batch is full.
func (w *Writer) WriteRow(ctx context.Context, fields []string) error {
	w.batch = append(w.batch, fitRow(fields, len(w.cfg.Columns)))
	if len(w.batch) >= w.batchSize {
		return w.flush(ctx)
	}
	return nil
}

// Close flushes the remaining batch and releases the pool.
func (w *Writer) Close(ctx context.Context) error {
	err := w.flush(ctx)
	w.pool.Close()
	return err
}

func (w *Writer) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	n, err := w.pool.CopyFrom(ctx, splitFQN(w.cfg.Table), w.cfg.Columns, pgx.CopyFromRows(w.batch))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return fmt.Errorf("postgres: copy: %s (%s)", pgErr.Detail, pgErr.SQLState())
		}
		return fmt.Errorf("postgres: copy: %w", err)
	}
	if n != int64(len(w.batch)) {
		return fmt.Errorf("postgres: copy wrote %d of %d rows", n, len(w.batch))
	}
	w.batch = w.batch[:0]
	return nil
}

// fitRow shapes a sheet row to the destination column count: short rows are
// padded with empty strings, long rows truncated. Sheets are ragged; tables
// are not.
func fitRow(fields []string, n int) []any {
	row := make([]any, n)
	for i := 0; i < n; i++ {
		if i < len(fields) {
			row[i] = fields[i]
		} else {
			row[i] = ""
		}
	}
	return row
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS with all-TEXT columns.
func createTableSQL(table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgIdent(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pgFQN(table), strings.Join(defs, ", "))
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.rows" to
// "public"."rows". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
