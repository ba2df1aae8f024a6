// Package config defines the canonical, JSON-serializable configuration
// model for the converter. It is intentionally small, explicit, and
// dependency-free so that pipelines can be loaded from disk (or built by
// the CLI from flags) and passed through the program without extra glue.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Go field names mirror the JSON structure used in pipeline
//     files under configs/*.json.
//  3. Minimalism: no third-party config libraries; decoding is performed by
//     the standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job":    "monthly_export",
//	  "source": { "kind": "file", "file": { "path": "report.xlsx" } },
//	  "reader": { "options": { "sheet": "" } },
//	  "normalize": { "datetime_layout": "02/01/2006, 15:04:05" },
//	  "output": { "kind": "csv", "csv": { "path": "report.csv" } }
//	}
package config

import "encoding/json"

// Pipeline describes one full conversion in JSON. It is the top-level
// object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for logs and metrics labels.
	Job string `json:"job"`

	// Source describes where the workbook bytes come from.
	Source Source `json:"source"`

	// Reader configures how the workbook is decoded into typed rows.
	Reader Reader `json:"reader"`

	// Normalize configures the cell-to-string normalization step.
	Normalize Normalize `json:"normalize"`

	// Output describes where normalized rows are written.
	Output Output `json:"output"`

	// Runtime controls batching and channel buffer sizes.
	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls buffering and batching. Worker counts are
// deliberately absent: the conversion is order-preserving, so each stage
// runs as a single goroutine and only the buffers are tunable.
type RuntimeConfig struct {
	// ChannelBuffer is the capacity of the inter-stage channels.
	ChannelBuffer int `json:"channel_buffer"`
	// BatchSize is the row batch size used by database sinks.
	BatchSize int `json:"batch_size"`
}

// Source identifies where the workbook is read from.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`

	// HTTP carries options for the "http" source kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input workbook.
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	// URL is the location the workbook is downloaded from.
	URL string `json:"url"`
	// MaxRetries caps transport-level retry attempts (0 = no retries).
	MaxRetries int `json:"max_retries"`
	// KeepDir, when set, saves a copy of each downloaded workbook under
	// this directory (URL-derived filename) and converts from the copy.
	KeepDir string `json:"keep_dir"`
}

// Reader selects how the workbook is decoded into typed rows. Decoding a
// reader object always leaves Options non-nil, whether the "options" key is
// missing, null, or present (see UnmarshalJSON).
type Reader struct {
	// Kind selects the reader implementation. Current value: "xlsx".
	// Empty means "xlsx".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the reader. For xlsx,
	// typical keys include:
	//   sheet (string; empty selects the workbook's active sheet)
	Options Options `json:"options"`
}

// UnmarshalJSON normalizes an absent "options" key to an empty map. The
// Options type handles the explicit-null case itself, but the decoder never
// calls an unmarshaler for a key that is not there at all.
func (r *Reader) UnmarshalJSON(b []byte) error {
	type plain Reader
	var tmp plain
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	if tmp.Options == nil {
		tmp.Options = Options{}
	}
	*r = Reader(tmp)
	return nil
}

// Normalize configures the cell normalizer and the row-level cleanups that
// run with it. The date layouts use Go reference-time syntax.
type Normalize struct {
	// DateTimeLayout renders date-formatted cells carrying a time-of-day
	// component. Default: "02/01/2006, 15:04:05".
	DateTimeLayout string `json:"datetime_layout"`

	// DateLayout renders date-formatted cells with no time-of-day
	// component. Default: "02/01/2006".
	DateLayout string `json:"date_layout"`

	// SkipDuplicateRows drops a row whose normalized fields are identical
	// to a previously emitted row. Off by default.
	SkipDuplicateRows bool `json:"skip_duplicate_rows"`
}

// Output selects the sink used to persist normalized rows.
type Output struct {
	// Kind selects the sink implementation: "csv" (default), "sqlite",
	// or "postgres".
	Kind string `json:"kind"`

	// CSV carries options for the "csv" sink kind.
	CSV OutputCSV `json:"csv"`

	// DB carries options for the database sink kinds.
	DB DBConfig `json:"db"`
}

// OutputCSV configures the delimited text sink.
type OutputCSV struct {
	// Path is the output file path.
	Path string `json:"path"`

	// Comma is the field delimiter as a one-rune string. Empty means ",".
	Comma string `json:"comma"`

	// BOM controls whether a UTF-8 byte-order mark is written at the start
	// of the file for compatibility with common spreadsheet tools.
	// Defaults to true; set "bom": false to emit plain UTF-8.
	BOM *bool `json:"bom,omitempty"`

	// GuardFormulas, when true, prefixes fields that would be interpreted
	// as formulas by spreadsheet software (leading '=', '+', '@', or a
	// non-numeric '-') with a single quote. Off by default; this changes
	// field content and is an explicit hardening opt-in.
	GuardFormulas bool `json:"guard_formulas"`
}

// DBConfig configures the sqlite and postgres sinks.
type DBConfig struct {
	// DSN is the connection string: a pgx/pgxpool DSN for postgres, a
	// database/sql DSN (usually a file path) for sqlite.
	DSN string `json:"dsn"`

	// Table is the destination table name (optionally schema-qualified
	// for postgres).
	Table string `json:"table"`

	// Columns enumerates the destination columns in source column order.
	// Required for database sinks; the sheet has no trusted header row.
	Columns []string `json:"columns"`

	// AutoCreateTable creates the table (all TEXT columns) when missing.
	AutoCreateTable bool `json:"auto_create_table"`
}

// MarshalPipeline renders a pipeline as indented JSON, e.g. for the probe
// tool's starter-config output.
func MarshalPipeline(p Pipeline) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Options is a small helper to fetch values from arbitrary JSON maps
// without introducing third-party configuration libraries. It returns the
// provided default when a key is absent or of an unexpected type. The xlsx
// reader consumes only string options today; add typed getters here when a
// reader kind actually needs them.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// UnmarshalJSON implements json.Unmarshaler so that a null "options" object
// decodes to a non-nil, empty Options map. Reader.UnmarshalJSON covers the
// missing-key case; together they remove nil-checks at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// BOMEnabled resolves the tri-state BOM field: unset means enabled.
func (c OutputCSV) BOMEnabled() bool {
	return c.BOM == nil || *c.BOM
}

// CommaRune resolves the delimiter, defaulting to ','.
func (c OutputCSV) CommaRune() rune {
	if c.Comma == "" {
		return ','
	}
	return []rune(c.Comma)[0]
}
