// Package cell defines the typed cell value model shared by the workbook
// reader and the normalization pipeline.
//
// A Cell is a small tagged union over the value kinds a spreadsheet cell can
// carry. The reader resolves each source cell into exactly one kind; the
// normalizer dispatches on the kind in a fixed order. Keeping the union
// explicit (instead of an `any` with type switches sprinkled around) makes
// the dispatch order testable and keeps boolean-vs-number ambiguity out of
// the pipeline entirely.
package cell

import "time"

// Kind identifies which variant of the union a Cell holds.
type Kind uint8

const (
	// Empty marks an absent value (blank cell).
	Empty Kind = iota
	// Text marks a string value.
	Text
	// Bool marks a boolean value.
	Bool
	// Int marks an integer value that fits in int64.
	Int
	// Float marks a binary floating-point value.
	Float
	// Date marks a calendar date with no time-of-day component.
	Date
	// DateTime marks a date with a time-of-day component.
	DateTime
)

// String returns the lowercase kind name, mainly for logs and probe output.
func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Text:
		return "text"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Cell is one typed value at a (row, column) position.
//
// Exactly one of Str/B/I/F/T is meaningful, selected by Kind. DateFormatted
// is supplied by the workbook reader (from the source cell's number format);
// it is never inferred from the value, and it only matters when Kind is Date
// or DateTime.
type Cell struct {
	Kind Kind

	Str string
	B   bool
	I   int64
	F   float64
	T   time.Time

	DateFormatted bool
}

// NewEmpty returns the absent value.
func NewEmpty() Cell { return Cell{Kind: Empty} }

// NewText returns a text cell.
func NewText(s string) Cell { return Cell{Kind: Text, Str: s} }

// NewBool returns a boolean cell.
func NewBool(b bool) Cell { return Cell{Kind: Bool, B: b} }

// NewInt returns an integer cell.
func NewInt(i int64) Cell { return Cell{Kind: Int, I: i} }

// NewFloat returns a floating-point cell.
func NewFloat(f float64) Cell { return Cell{Kind: Float, F: f} }

// NewDate returns a date-only cell. dateFormatted records whether the source
// cell carried a date/time number format.
func NewDate(t time.Time, dateFormatted bool) Cell {
	return Cell{Kind: Date, T: t, DateFormatted: dateFormatted}
}

// NewDateTime returns a date-time cell. dateFormatted records whether the
// source cell carried a date/time number format.
func NewDateTime(t time.Time, dateFormatted bool) Cell {
	return Cell{Kind: DateTime, T: t, DateFormatted: dateFormatted}
}
