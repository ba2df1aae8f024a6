package main

import (
	"os"
	"path/filepath"
	"testing"

	"xlcsv/internal/config"
)

func writeConfig(tb testing.TB, body string) string {
	tb.Helper()
	p := filepath.Join(tb.TempDir(), "pipeline.json")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		tb.Fatalf("write config: %v", err)
	}
	return p
}

func TestResolvePipeline_ShortcutsOnly(t *testing.T) {
	t.Parallel()

	p, err := resolvePipeline("", "/data/report.xlsx", "", "Sheet2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Source.Kind != "file" || p.Source.File.Path != "/data/report.xlsx" {
		t.Fatalf("source: %+v", p.Source)
	}
	// -out omitted: the CSV path is derived next to the input.
	if p.Output.Kind != "csv" || p.Output.CSV.Path != "/data/report.csv" {
		t.Fatalf("output: %+v", p.Output)
	}
	if got := p.Reader.Options.String("sheet", ""); got != "Sheet2" {
		t.Fatalf("sheet: got %q", got)
	}
}

func TestResolvePipeline_ConfigFile(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, `{
  "job": "monthly",
  "source": { "kind": "file", "file": { "path": "in.xlsx" } },
  "normalize": { "skip_duplicate_rows": true },
  "output": { "kind": "csv", "csv": { "path": "out.csv", "comma": ";" } }
}`)

	p, err := resolvePipeline(cfg, "", "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Job != "monthly" {
		t.Fatalf("job: got %q", p.Job)
	}
	if !p.Normalize.SkipDuplicateRows {
		t.Fatal("skip_duplicate_rows not decoded")
	}
	if p.Output.CSV.Comma != ";" {
		t.Fatalf("comma: got %q", p.Output.CSV.Comma)
	}
}

func TestResolvePipeline_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, `{
  "source": { "kind": "http", "http": { "url": "https://example.com/a.xlsx" } },
  "output": { "kind": "csv", "csv": { "path": "from_config.csv" } }
}`)

	p, err := resolvePipeline(cfg, "local.xlsx", "override.csv", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Source.Kind != "file" || p.Source.File.Path != "local.xlsx" {
		t.Fatalf("-in should replace the config source, got %+v", p.Source)
	}
	if p.Output.CSV.Path != "override.csv" {
		t.Fatalf("-out should replace the config output path, got %q", p.Output.CSV.Path)
	}
}

func TestResolvePipeline_BadConfig(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, `{not json`)
	if _, err := resolvePipeline(cfg, "", "", ""); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := resolvePipeline(filepath.Join(t.TempDir(), "missing.json"), "", "", ""); err == nil {
		t.Fatal("expected open error")
	}
}

func TestResolvePipeline_ValidatesClean(t *testing.T) {
	t.Parallel()

	p, err := resolvePipeline("", "in.xlsx", "out.csv", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
		t.Fatalf("shortcut pipeline should validate, got %v", issues)
	}
}

func TestSourceAndOutputDesc(t *testing.T) {
	t.Parallel()

	p := config.Pipeline{
		Source: config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: "https://x/y.xlsx"}},
		Output: config.Output{Kind: "sqlite", DB: config.DBConfig{Table: "t"}},
	}
	if got := sourceDesc(p); got != "http:https://x/y.xlsx" {
		t.Fatalf("sourceDesc: got %q", got)
	}
	if got := outputDesc(p); got != "sqlite:t" {
		t.Fatalf("outputDesc: got %q", got)
	}

	p = config.Pipeline{
		Source: config.Source{File: config.SourceFile{Path: "a.xlsx"}},
		Output: config.Output{CSV: config.OutputCSV{Path: "a.csv"}},
	}
	if got := sourceDesc(p); got != "file:a.xlsx" {
		t.Fatalf("sourceDesc: got %q", got)
	}
	if got := outputDesc(p); got != "csv:a.csv" {
		t.Fatalf("outputDesc: got %q", got)
	}
}

// Batch mode: each listed workbook converts to a CSV derived from its own
// name; comments and blank lines in the list are skipped.
func TestRunBatch_ConvertsEachInput(t *testing.T) {
	dir := t.TempDir()

	var inputs []string
	for _, name := range []string{"one", "two"} {
		in := makeWorkbook(t, [][]any{{name, int64(1)}})
		dst := filepath.Join(dir, name+".xlsx")
		b, err := os.ReadFile(in)
		if err != nil {
			t.Fatalf("read workbook: %v", err)
		}
		if err := os.WriteFile(dst, b, 0o644); err != nil {
			t.Fatalf("copy workbook: %v", err)
		}
		inputs = append(inputs, dst)
	}

	list := filepath.Join(dir, "batch.txt")
	body := "# nightly exports\n\n" + inputs[0] + "\n" + inputs[1] + "\n"
	if err := os.WriteFile(list, []byte(body), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}

	if err := runBatch(t.Context(), config.Pipeline{Job: "batch"}, list, false); err != nil {
		t.Fatalf("runBatch: %v", err)
	}

	for _, name := range []string{"one", "two"} {
		out := filepath.Join(dir, name+".csv")
		if _, err := os.Stat(out); err != nil {
			t.Fatalf("missing derived output %s: %v", out, err)
		}
	}
}

func TestRunBatch_EmptyList(t *testing.T) {
	t.Parallel()

	list := filepath.Join(t.TempDir(), "batch.txt")
	if err := os.WriteFile(list, []byte("# only comments\n"), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	if err := runBatch(t.Context(), config.Pipeline{}, list, false); err == nil {
		t.Fatal("expected error for empty list")
	}
}
