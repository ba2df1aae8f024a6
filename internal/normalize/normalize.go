// Package normalize converts typed spreadsheet cells into canonical,
// locale-independent strings and scrubs invisible Unicode noise from text.
//
// Design goals:
//   - Total functions: every cell resolves to a string, never an error.
//     A numeric value that cannot be rendered exactly falls back to the
//     default textual form for that single cell.
//   - No scientific notation, ever: large integers stored as floats must
//     render with all their digits, not as 5.79E+17.
//   - Fixed, configuration-driven date layouts (no process-wide state).
//   - Dispatch order is significant and mirrors the kind overlaps found in
//     weakly-typed sources: dates are serial-number-backed, so the date
//     check runs before the numeric check; booleans are checked before
//     numbers.
package normalize

import (
	"fmt"
	"math"
	"strconv"

	"xlcsv/internal/cell"
)

// Default date layouts, day-first and zero-padded.
const (
	DefaultDateTimeLayout = "02/01/2006, 15:04:05"
	DefaultDateLayout     = "02/01/2006"
)

// Config carries the normalization knobs. The zero value is not usable;
// construct with DefaultConfig or fill every field.
type Config struct {
	// DateTimeLayout renders date-formatted cells that carry a
	// time-of-day component.
	DateTimeLayout string
	// DateLayout renders date-formatted cells with no time-of-day
	// component.
	DateLayout string
}

// DefaultConfig returns the stock layouts (DD/MM/YYYY, 24-hour).
func DefaultConfig() Config {
	return Config{
		DateTimeLayout: DefaultDateTimeLayout,
		DateLayout:     DefaultDateLayout,
	}
}

// Normalizer maps typed cells to canonical strings. It is not safe for
// concurrent use: the sanitizer's transform chain carries internal buffers.
// Create one per pipeline stage.
type Normalizer struct {
	cfg Config
	san *sanitizer
}

// New returns a Normalizer for cfg. Empty layout fields fall back to the
// defaults so a partially filled config stays usable.
func New(cfg Config) *Normalizer {
	if cfg.DateTimeLayout == "" {
		cfg.DateTimeLayout = DefaultDateTimeLayout
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = DefaultDateLayout
	}
	return &Normalizer{cfg: cfg, san: newSanitizer()}
}

// Normalize returns the canonical string for c. It is a pure function of
// (c.Kind, value, c.DateFormatted); sanitization is a separate, later step.
//
// First match wins:
//  1. absent           -> ""
//  2. date-formatted   -> fixed date/date-time layout
//  3. text             -> unchanged
//  4. bool             -> "TRUE" / "FALSE"
//  5. int, float       -> exact fixed-point decimal, no exponent
//  6. anything else    -> default textual form
func (n *Normalizer) Normalize(c cell.Cell) string {
	switch {
	case c.Kind == cell.Empty:
		return ""
	case c.DateFormatted && c.Kind == cell.DateTime:
		return c.T.Format(n.cfg.DateTimeLayout)
	case c.DateFormatted && c.Kind == cell.Date:
		return c.T.Format(n.cfg.DateLayout)
	case c.Kind == cell.Text:
		return c.Str
	case c.Kind == cell.Bool:
		if c.B {
			return "TRUE"
		}
		return "FALSE"
	case c.Kind == cell.Int:
		return strconv.FormatInt(c.I, 10)
	case c.Kind == cell.Float:
		return formatDecimal(c.F)
	case c.Kind == cell.Date || c.Kind == cell.DateTime:
		// Date value without a date number format: the reader should not
		// produce this, but render it with the date-time layout rather
		// than leaking a raw time.Time string.
		return c.T.Format(n.cfg.DateTimeLayout)
	default:
		return fmt.Sprintf("%v", c)
	}
}

// Clean is the per-cell pipeline: normalize first (type-aware), sanitize
// second (text-only cleanup). The order must not be reversed; sanitize has
// no access to the typed value.
func (n *Normalizer) Clean(c cell.Cell) string {
	return n.Sanitize(n.Normalize(c))
}

// formatDecimal renders f as exact base-10 fixed-point text.
//
// strconv with format 'f' and precision -1 produces the shortest decimal
// digit string that round-trips f, rendered without an exponent and without
// trailing fractional zeros; that is exactly the contract required here
// (3.0 -> "3", 3.14 -> "3.14", 5.79e17 -> "579000000000000000"). Non-finite
// values cannot be rendered as decimals and take the fallback path.
func formatDecimal(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
