// Package csvfile writes normalized rows as delimited text. By default the
// output starts with a UTF-8 byte-order mark so spreadsheet tools detect the
// encoding; fields are minimally quoted by encoding/csv and records end in
// CRLF, matching what those tools emit themselves.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"xlcsv/internal/config"
)

// Writer streams rows to a delimited text file.
type Writer struct {
	f     *os.File
	enc   io.WriteCloser
	w     *csv.Writer
	guard bool

	// scratch holds guarded fields so WriteRow does not allocate a new
	// slice per row when the guard is enabled.
	scratch []string
}

// New creates (or truncates) the output file and prepares the writer
// according to cfg.
func New(cfg config.OutputCSV) (*Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv output: path is required")
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csv output: %w", err)
	}

	var sink io.Writer = f
	var enc io.WriteCloser
	if cfg.BOMEnabled() {
		// The encoder emits the BOM on the first write and passes UTF-8
		// through untouched afterwards.
		enc = transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
		sink = enc
	}

	w := csv.NewWriter(sink)
	w.Comma = cfg.CommaRune()
	w.UseCRLF = true

	return &Writer{f: f, enc: enc, w: w, guard: cfg.GuardFormulas}, nil
}

// WriteRow writes one record. When formula guarding is enabled, fields that
// spreadsheet software would execute get a leading apostrophe.
func (c *Writer) WriteRow(ctx context.Context, fields []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.guard {
		fields = c.guarded(fields)
	}
	if err := c.w.Write(fields); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	return nil
}

func (c *Writer) guarded(fields []string) []string {
	c.scratch = c.scratch[:0]
	for _, f := range fields {
		c.scratch = append(c.scratch, guardFormula(f))
	}
	return c.scratch
}

// Close flushes buffered records, finishes the encoder, and closes the file.
func (c *Writer) Close(ctx context.Context) error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return fmt.Errorf("csv flush: %w", err)
	}
	if c.enc != nil {
		if err := c.enc.Close(); err != nil {
			_ = c.f.Close()
			return fmt.Errorf("csv encoder: %w", err)
		}
	}
	if err := c.f.Close(); err != nil {
		return fmt.Errorf("csv close: %w", err)
	}
	return nil
}

// guardFormula neutralizes fields that common spreadsheet tools would
// interpret as formulas on re-import: a leading '=', '@', '+', or '-' (the
// sign characters only when the field is not a plain number). The guard is
// a single leading apostrophe, the convention those tools themselves use
// for "treat as text".
func guardFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '@':
		return "'" + s
	case '+', '-':
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return s
		}
		return "'" + s
	}
	return s
}
