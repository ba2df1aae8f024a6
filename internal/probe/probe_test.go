package probe

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"xlcsv/internal/config"
)

// buildWorkbook writes a small two-sheet workbook: a header row with messy
// names, then data rows.
func buildWorkbook(tb testing.TB) string {
	tb.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	cells := map[string]any{
		"A1": "Číslo ID", "B1": "Názov  položky", "C1": "Názov  položky",
		"A2": int64(1), "B2": "alpha", "C2": "x",
		"A3": int64(2), "B3": "beta", "C3": "y",
	}
	for addr, v := range cells {
		if err := f.SetCellValue(sheet, addr, v); err != nil {
			tb.Fatalf("set %s: %v", addr, err)
		}
	}
	if _, err := f.NewSheet("Extra"); err != nil {
		tb.Fatalf("new sheet: %v", err)
	}

	p := filepath.Join(tb.TempDir(), "probe.xlsx")
	if err := f.SaveAs(p); err != nil {
		tb.Fatalf("save: %v", err)
	}
	return p
}

func TestProbe_File(t *testing.T) {
	t.Parallel()

	path := buildWorkbook(t)
	res, err := Probe(context.Background(), Options{
		Path:    path,
		Name:    "Technické Prohlídky",
		Backend: "sqlite",
	})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}

	if len(res.Sheets) != 2 {
		t.Fatalf("sheets: got %v", res.Sheets)
	}
	if len(res.Sample) != 3 {
		t.Fatalf("sample rows: got %d want 3", len(res.Sample))
	}
	wantCols := []string{"cislo_id", "nazov_polozky", "nazov_polozky_2"}
	if len(res.Columns) != len(wantCols) {
		t.Fatalf("columns: got %v", res.Columns)
	}
	for i, w := range wantCols {
		if res.Columns[i] != w {
			t.Fatalf("column %d: got %q want %q", i, res.Columns[i], w)
		}
	}
	wantKinds := []string{"int", "text", "text"}
	for i, w := range wantKinds {
		if res.Kinds[i] != w {
			t.Fatalf("kind %d: got %q want %q", i, res.Kinds[i], w)
		}
	}

	p := res.Pipeline
	if p.Job != "technicke_prohlidky" {
		t.Fatalf("job: got %q", p.Job)
	}
	if p.Output.Kind != "sqlite" || p.Output.DB.Table != "technicke_prohlidky" {
		t.Fatalf("output: %+v", p.Output)
	}
	if !p.Output.DB.AutoCreateTable {
		t.Fatal("auto_create_table should be on in starter configs")
	}
	if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
		t.Fatalf("starter config should validate, got %v", issues)
	}
}

func TestProbe_SampleLimit(t *testing.T) {
	t.Parallel()

	path := buildWorkbook(t)
	res, err := Probe(context.Background(), Options{Path: path, Name: "d", SampleRows: 2})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if len(res.Sample) != 2 {
		t.Fatalf("sample rows: got %d want 2", len(res.Sample))
	}
}

func TestProbe_URLRejectsNonWorkbook(t *testing.T) {
	orig := peekFn
	peekFn = func(context.Context, string, int, bool) ([]byte, error) {
		return []byte("<!DOCTYPE html><html>"), nil
	}
	t.Cleanup(func() { peekFn = orig })

	_, err := Probe(context.Background(), Options{URL: "https://example.com/a.xlsx", Name: "d"})
	if err == nil {
		t.Fatal("expected rejection for non-zip payload")
	}
}

func TestProbe_OptionValidation(t *testing.T) {
	t.Parallel()

	if _, err := Probe(context.Background(), Options{}); err == nil {
		t.Fatal("expected error with neither path nor url")
	}
	if _, err := Probe(context.Background(), Options{Path: "a.xlsx", URL: "https://x"}); err == nil {
		t.Fatal("expected error with both path and url")
	}
}

func TestNormalizeFieldName(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"Číslo ID", "cislo_id"},
		{"  Názov   položky ", "nazov_polozky"},
		{"Price (EUR)", "price_eur"},
		{"a.b-c d", "a_b_c_d"},
		{"___", "col"},
		{"", "col"},
		{"2024 Total", "2024_total"},
	}
	for _, tc := range cases {
		if got := normalizeFieldName(tc.in); got != tc.want {
			t.Errorf("normalizeFieldName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncateFieldName(t *testing.T) {
	t.Parallel()

	short := "ok_name"
	if got := truncateFieldName(short); got != short {
		t.Fatalf("short name changed: %q", got)
	}
	long := ""
	for len(long) < 80 {
		long += "abcdefghij"
	}
	got := truncateFieldName(long)
	if len(got) != 63 {
		t.Fatalf("truncated length: got %d want 63", len(got))
	}
	if got[:10] != long[:10] || got[10:] != long[len(long)-53:] {
		t.Fatal("truncation should keep the first 10 and last 53 characters")
	}
}
