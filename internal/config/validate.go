// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of
// issues (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be
	// surfaced to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "output.csv.path").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue
// values; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	// Source
	switch p.Source.Kind {
	case "", "file":
		if p.Source.File.Path == "" {
			add(SeverityError, "source.file.path", "input workbook path is required")
		} else if !strings.HasSuffix(strings.ToLower(p.Source.File.Path), ".xlsx") {
			add(SeverityWarning, "source.file.path", "path %q does not end in .xlsx", p.Source.File.Path)
		}
	case "http":
		if p.Source.HTTP.URL == "" {
			add(SeverityError, "source.http.url", "workbook URL is required")
		}
		if p.Source.HTTP.MaxRetries < 0 {
			add(SeverityError, "source.http.max_retries", "must be >= 0, got %d", p.Source.HTTP.MaxRetries)
		}
	default:
		add(SeverityError, "source.kind", "unsupported kind %q (want file or http)", p.Source.Kind)
	}

	// Reader
	if p.Reader.Kind != "" && p.Reader.Kind != "xlsx" {
		add(SeverityError, "reader.kind", "unsupported kind %q (want xlsx)", p.Reader.Kind)
	}

	// Normalize layouts: render the reference time and make sure the layout
	// is at least self-consistent (a layout with no recognizable tokens
	// renders itself, which is almost always a mistake).
	checkLayout(&issues, "normalize.datetime_layout", p.Normalize.DateTimeLayout)
	checkLayout(&issues, "normalize.date_layout", p.Normalize.DateLayout)

	// Output
	switch p.Output.Kind {
	case "", "csv":
		if p.Output.CSV.Path == "" {
			add(SeverityError, "output.csv.path", "output path is required")
		}
		if c := p.Output.CSV.Comma; c != "" && utf8.RuneCountInString(c) != 1 {
			add(SeverityError, "output.csv.comma", "delimiter must be a single rune, got %q", c)
		}
		if p.Output.CSV.Comma == `"` {
			add(SeverityError, "output.csv.comma", `'"' cannot be used as a delimiter`)
		}
	case "sqlite", "postgres":
		if p.Output.DB.DSN == "" {
			add(SeverityError, "output.db.dsn", "DSN is required for %s output", p.Output.Kind)
		}
		if p.Output.DB.Table == "" {
			add(SeverityError, "output.db.table", "table is required for %s output", p.Output.Kind)
		}
		if len(p.Output.DB.Columns) == 0 {
			add(SeverityError, "output.db.columns", "columns are required for %s output (sheets carry no trusted header)", p.Output.Kind)
		}
		seen := map[string]struct{}{}
		for i, c := range p.Output.DB.Columns {
			if strings.TrimSpace(c) == "" {
				add(SeverityError, fmt.Sprintf("output.db.columns[%d]", i), "column name must not be empty")
				continue
			}
			if _, dup := seen[c]; dup {
				add(SeverityError, fmt.Sprintf("output.db.columns[%d]", i), "duplicate column %q", c)
			}
			seen[c] = struct{}{}
		}
	default:
		add(SeverityError, "output.kind", "unsupported kind %q (want csv, sqlite or postgres)", p.Output.Kind)
	}

	// Runtime
	if p.Runtime.ChannelBuffer < 0 {
		add(SeverityError, "runtime.channel_buffer", "must be >= 0, got %d", p.Runtime.ChannelBuffer)
	}
	if p.Runtime.BatchSize < 0 {
		add(SeverityError, "runtime.batch_size", "must be >= 0, got %d", p.Runtime.BatchSize)
	}
	if p.Job == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job name is empty; metrics and logs will use the default job label",
		})
	}

	return issues
}

// checkLayout warns when a non-empty Go time layout contains none of the
// reference-time tokens: formatting with it would emit the layout verbatim
// for every cell. A deliberately non-reference probe time is used so that a
// correct layout does not round-trip to itself.
func checkLayout(issues *[]Issue, path, layout string) {
	if layout == "" {
		return // empty falls back to the package default
	}
	probe := time.Date(2023, 8, 24, 17, 39, 28, 0, time.UTC)
	if probe.Format(layout) == layout {
		*issues = append(*issues, Issue{
			Severity: SeverityWarning,
			Path:     path,
			Message:  fmt.Sprintf("layout %q contains no reference-time tokens", layout),
		})
	}
}

// HasErrors reports whether any issue carries SeverityError.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
