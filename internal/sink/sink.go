// Package sink persists normalized rows. A RowWriter receives one []string
// per sheet row, already normalized and sanitized, strictly in source order.
//
// Implementations live in subpackages: csvfile (delimited text with an
// optional UTF-8 BOM), sqlite (batched INSERTs in a transaction), and
// postgres (pgx COPY).
package sink

import (
	"context"
	"fmt"

	"xlcsv/internal/config"
	"xlcsv/internal/sink/csvfile"
	"xlcsv/internal/sink/postgres"
	"xlcsv/internal/sink/sqlite"
)

// RowWriter consumes normalized rows. WriteRow may buffer; Close flushes
// anything buffered and releases resources. Implementations are not safe
// for concurrent use; the pipeline writes from a single goroutine.
type RowWriter interface {
	WriteRow(ctx context.Context, fields []string) error
	Close(ctx context.Context) error
}

// FromConfig builds the RowWriter selected by out.Kind ("csv" by default).
// batchSize applies to the database sinks; <= 0 selects their default.
func FromConfig(ctx context.Context, out config.Output, batchSize int) (RowWriter, error) {
	switch out.Kind {
	case "", "csv":
		return csvfile.New(out.CSV)
	case "sqlite":
		return sqlite.New(ctx, out.DB, batchSize)
	case "postgres":
		return postgres.New(ctx, out.DB, batchSize)
	default:
		return nil, fmt.Errorf("unsupported output kind %q", out.Kind)
	}
}
