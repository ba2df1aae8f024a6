// Package sqlite persists normalized rows into a SQLite table using
// database/sql. Rows are accumulated into batches and flushed inside a
// transaction with a prepared INSERT; SQLite has no dedicated bulk-load API
// like Postgres COPY, but transactions keep performance acceptable for
// moderate volumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo

	"xlcsv/internal/config"
)

// DefaultBatchSize is used when the pipeline does not set runtime.batch_size.
const DefaultBatchSize = 500

// Writer buffers rows and flushes them in transactions.
type Writer struct {
	db        *sql.DB
	cfg       config.DBConfig
	batchSize int
	batch     [][]any
}

// New opens the SQLite database, optionally creates the destination table,
// and returns a Writer.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:out.db?cache=shared"
//	"out.db"
func New(ctx context.Context, cfg config.DBConfig, batchSize int) (*Writer, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("sqlite: columns must not be empty")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if cfg.AutoCreateTable {
		if _, err := db.ExecContext(ctx, createTableSQL(cfg.Table, cfg.Columns)); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: create table: %w", err)
		}
	}

	return &Writer{db: db, cfg: cfg, batchSize: batchSize}, nil
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

// Close flushes the remaining batch and closes the database.
func (w *Writer) Close(ctx context.Context) error {
	flushErr := w.flush(ctx)
	if err := w.db.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return flushErr
}

// flush inserts the buffered rows inside one transaction with a prepared
// statement.
func (w *Writer) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}

	placeholders := make([]string, len(w.cfg.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(w.cfg.Table),
		strings.Join(quoteIdents(w.cfg.Columns), ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range w.batch {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
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
// Normalized values are canonical strings; typing beyond TEXT is the
// consumer's concern.
func createTableSQL(table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

// quoteIdent safely quotes a single identifier.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func quoteIdents(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = quoteIdent(id)
	}
	return out
}
