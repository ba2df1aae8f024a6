package xlsx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"xlcsv/internal/cell"
	"xlcsv/internal/rows"
)

// buildWorkbook writes a small workbook exercising each cell type and
// returns its path.
func buildWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	// Row 1: plain strings, one with invisible characters preserved as-is.
	must(f.SetCellValue(sheet, "A1", "name"))
	must(f.SetCellValue(sheet, "B1", "Café\u200b"))

	// Row 2: a date-styled serial (numfmt 14, date only) and a large integer.
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	must(err)
	must(f.SetCellValue(sheet, "A2", 45292.0)) // 2024-01-01
	must(f.SetCellStyle(sheet, "A2", "A2", dateStyle))
	must(f.SetCellValue(sheet, "B2", int64(579000000000000000)))

	// Row 3: a native time value (carries a time-of-day), a bool, a float,
	// and a gap at C3 before D3.
	must(f.SetCellValue(sheet, "A3", time.Date(2025, 6, 1, 0, 0, 19, 0, time.UTC)))
	must(f.SetCellValue(sheet, "B3", true))
	must(f.SetCellValue(sheet, "D3", 3.14))

	path := filepath.Join(t.TempDir(), "cells.xlsx")
	must(f.SaveAs(path))
	return path
}

// collect drains the reader into a slice, failing the test on any soft or
// fatal error.
func collect(t *testing.T, r *Reader) []*rows.Row {
	t.Helper()

	out := make(chan *rows.Row, 16)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		errc <- r.Stream(context.Background(), out, func(line int, err error) {
			t.Errorf("soft error at line %d: %v", line, err)
		})
	}()

	var got []*rows.Row
	for row := range out {
		got = append(got, row)
	}
	if err := <-errc; err != nil {
		t.Fatalf("stream: %v", err)
	}
	return got
}

func TestStream_TypedCells(t *testing.T) {
	t.Parallel()

	r, err := Open(buildWorkbook(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := collect(t, r)
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}

	// Row 1: strings survive byte-for-byte, invisible characters included.
	if c := got[0].C[0]; c.Kind != cell.Text || c.Str != "name" {
		t.Errorf("A1 = %+v", c)
	}
	if c := got[0].C[1]; c.Kind != cell.Text || c.Str != "Café\u200b" {
		t.Errorf("B1 = %+v, want raw string with zero-width kept", c)
	}

	// Row 2: integral date serial with a date style, and a large integer
	// that must not pass through float formatting.
	if c := got[1].C[0]; c.Kind != cell.Date || !c.DateFormatted {
		t.Errorf("A2 = %+v, want date-formatted Date", c)
	} else if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !c.T.Equal(want) {
		t.Errorf("A2 time = %v, want %v", c.T, want)
	}
	if c := got[1].C[1]; c.Kind != cell.Int || c.I != 579000000000000000 {
		t.Errorf("B2 = %+v, want Int 579000000000000000", c)
	}

	// Row 3: fractional serial becomes DateTime, bool stays bool, the gap
	// at C3 is an empty cell, and D3 is a float.
	if c := got[2].C[0]; c.Kind != cell.DateTime || !c.DateFormatted {
		t.Errorf("A3 = %+v, want date-formatted DateTime", c)
	} else if s := c.T.Format("02/01/2006, 15:04:05"); s != "01/06/2025, 00:00:19" {
		t.Errorf("A3 renders %q", s)
	}
	if c := got[2].C[1]; c.Kind != cell.Bool || !c.B {
		t.Errorf("B3 = %+v, want Bool true", c)
	}
	if c := got[2].C[2]; c.Kind != cell.Empty {
		t.Errorf("C3 = %+v, want Empty", c)
	}
	if c := got[2].C[3]; c.Kind != cell.Float || c.F != 3.14 {
		t.Errorf("D3 = %+v, want Float 3.14", c)
	}
}

func TestOpen_SheetSelection(t *testing.T) {
	t.Parallel()

	path := buildWorkbook(t)

	r, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Sheet() != "Sheet1" {
		t.Errorf("active sheet = %q", r.Sheet())
	}
	r.Close()

	if _, err := Open(path, Options{Sheet: "Nope"}); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestStream_Cancellation(t *testing.T) {
	t.Parallel()

	r, err := Open(buildWorkbook(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *rows.Row) // unbuffered, nobody receiving
	if err := r.Stream(ctx, out, nil); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTypeless(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		kind cell.Kind
	}{
		{"42", cell.Int},
		{"-7", cell.Int},
		{"579000000000000000", cell.Int},
		{"3.14", cell.Float},
		{"1e3", cell.Float},
		{"12abc", cell.Text},
	}
	for _, tc := range tests {
		if c := typeless(tc.raw); c.Kind != tc.kind {
			t.Errorf("typeless(%q).Kind = %v, want %v", tc.raw, c.Kind, tc.kind)
		}
	}
}

func TestDateCell_ISOFallback(t *testing.T) {
	t.Parallel()

	if c := dateCell("2024-01-01"); c.Kind != cell.Date {
		t.Errorf("ISO date = %+v", c)
	}
	if c := dateCell("2024-01-01T10:30:00"); c.Kind != cell.DateTime {
		t.Errorf("ISO datetime = %+v", c)
	}
	if c := dateCell("not a date"); c.Kind != cell.Text {
		t.Errorf("garbage = %+v", c)
	}
}
