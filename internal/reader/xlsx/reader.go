// Package xlsx decodes one worksheet of an .xlsx workbook into a stream of
// typed rows.
//
// Design goals:
//   - No whole-sheet buffering; rows flow via a bounded channel of pooled
//     containers (see internal/rows).
//   - Typed cells, not display strings: raw stored values are combined with
//     the native cell type and the cell's number format so that downstream
//     normalization can dispatch on an explicit tagged union. Display
//     artifacts (thousands separators, currency symbols) never enter the
//     pipeline.
//   - Per-cell oddities are soft: a value that cannot be typed degrades to
//     its textual form. Only open/iteration failures are fatal.
//
// Formulas are read as their cached values; the formula text is never
// surfaced.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"xlcsv/internal/cell"
	"xlcsv/internal/rows"
)

// Options configures a Reader.
type Options struct {
	// Sheet selects the worksheet by name. Empty selects the workbook's
	// active sheet.
	Sheet string
}

// Reader streams typed rows from a single worksheet.
type Reader struct {
	f     *excelize.File
	sheet string

	// dateStyles caches style ID -> "is a date/time number format" so the
	// style XML is inspected once per distinct style, not once per cell.
	dateStyles map[int]bool
}

// Open opens the workbook at path and resolves the target sheet.
func Open(path string, opt Options) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return newReader(f, opt)
}

// OpenReader opens a workbook from an in-memory stream (e.g. an HTTP
// response body).
func OpenReader(r io.Reader, opt Options) (*Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook stream: %w", err)
	}
	return newReader(f, opt)
}

func newReader(f *excelize.File, opt Options) (*Reader, error) {
	sheet := opt.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("workbook has no active sheet")
	}
	found := false
	for _, name := range f.GetSheetList() {
		if name == sheet {
			found = true
			break
		}
	}
	if !found {
		f.Close()
		return nil, fmt.Errorf("sheet %q not found in workbook", sheet)
	}
	return &Reader{f: f, sheet: sheet, dateStyles: make(map[int]bool)}, nil
}

// Sheet returns the resolved worksheet name.
func (r *Reader) Sheet() string { return r.sheet }

// Sheets returns every worksheet name in the workbook, in workbook order.
func (r *Reader) Sheets() []string { return r.f.GetSheetList() }

// Close releases the underlying workbook.
func (r *Reader) Close() error { return r.f.Close() }

// Stream iterates the worksheet in source order and sends one pooled row
// per sheet row to out. The caller owns closing out.
//
// Behavior:
//   - Rows and cells are emitted strictly in row-major source order.
//   - Per-row column errors are soft: they are reported via
//     onError(line, err) and the row continues with a text fallback.
//   - Returns nil on end of sheet, ctx.Err() on cancellation, or a fatal
//     iteration error.
func (r *Reader) Stream(ctx context.Context, out chan<- *rows.Row, onError func(line int, err error)) error {
	iter, err := r.f.Rows(r.sheet)
	if err != nil {
		return fmt.Errorf("iterate sheet %s: %w", r.sheet, err)
	}
	defer iter.Close()

	line := 0
	for iter.Next() {
		line++

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cols, err := iter.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			if onError != nil {
				onError(line, fmt.Errorf("read row: %w", err))
			}
			continue
		}

		row := rows.Get(len(cols))
		row.Line = line
		for i, raw := range cols {
			row.C[i] = r.cellAt(i+1, line, raw, onError)
		}

		select {
		case out <- row:
		case <-ctx.Done():
			row.Free()
			return ctx.Err()
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("sheet %s: %w", r.sheet, err)
	}
	return nil
}

// cellAt types a single raw stored value using the native cell type and the
// cell's number format. col and line are 1-based.
func (r *Reader) cellAt(col, line int, raw string, onError func(int, error)) cell.Cell {
	if raw == "" {
		return cell.NewEmpty()
	}

	ref, err := excelize.CoordinatesToCellName(col, line)
	if err != nil {
		// Out-of-range coordinates cannot happen for iterator output;
		// degrade to text rather than dropping the value.
		return cell.NewText(raw)
	}

	ct, err := r.f.GetCellType(r.sheet, ref)
	if err != nil {
		if onError != nil {
			onError(line, fmt.Errorf("cell %s type: %w", ref, err))
		}
		return typeless(raw)
	}

	switch ct {
	case excelize.CellTypeBool:
		return cell.NewBool(raw == "1" || strings.EqualFold(raw, "true"))

	case excelize.CellTypeInlineString, excelize.CellTypeSharedString:
		return cell.NewText(raw)

	case excelize.CellTypeError:
		// Error literals (#DIV/0! etc.) pass through as text.
		return cell.NewText(raw)

	case excelize.CellTypeDate:
		return dateCell(raw)

	default:
		// Number, formula results, and unset types: a date number format
		// decides before any numeric interpretation, because stored date
		// values are plain serial numbers.
		if r.isDateStyled(ref) {
			return dateCell(raw)
		}
		return typeless(raw)
	}
}

// isDateStyled reports whether the cell's style carries a date/time number
// format. Results are cached per style ID.
func (r *Reader) isDateStyled(ref string) bool {
	styleID, err := r.f.GetCellStyle(r.sheet, ref)
	if err != nil {
		return false
	}
	if isDate, ok := r.dateStyles[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := r.f.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	r.dateStyles[styleID] = isDate
	return isDate
}

// typeless types a raw value with no usable cell type: integer first, then
// float, then text.
func typeless(raw string) cell.Cell {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return cell.NewInt(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return cell.NewFloat(f)
	}
	return cell.NewText(raw)
}

// dateCell converts a date-formatted stored value. Serial numbers with no
// fractional day become date-only cells; any time-of-day component makes a
// date-time cell. Values that fail conversion degrade via the numeric path.
func dateCell(raw string) cell.Cell {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Rare ISO-typed date cells (attribute t="d") store text dates.
		return isoDateCell(raw)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return typeless(raw)
	}
	if serial == math.Trunc(serial) {
		return cell.NewDate(t, true)
	}
	return cell.NewDateTime(t, true)
}

// isoDateCell parses ISO 8601 date cells, the uncommon t="d" storage form.
func isoDateCell(raw string) cell.Cell {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return cell.NewDateTime(t, true)
		}
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return cell.NewDate(t, true)
	}
	return cell.NewText(raw)
}
