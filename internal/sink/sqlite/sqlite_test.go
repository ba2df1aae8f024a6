package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"xlcsv/internal/config"
)

func testConfig(t *testing.T) config.DBConfig {
	t.Helper()
	return config.DBConfig{
		DSN:             filepath.Join(t.TempDir(), "out.db"),
		Table:           "converted",
		Columns:         []string{"name", "when_", "amount"},
		AutoCreateTable: true,
	}
}

func TestWriter_InsertsAndFlushes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	// Batch size 2 forces one mid-stream flush plus one on Close.
	w, err := New(ctx, cfg, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rows := [][]string{
		{"Café", "01/01/2024", "1000000000000"},
		{"short row"},
		{"extra", "x", "y", "overflow is dropped"},
	}
	for _, r := range rows {
		if err := w.WriteRow(ctx, r); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "converted"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("rows = %d, want 3", n)
	}

	// Short rows are padded with empty strings, long rows truncated.
	var name, when, amount string
	err = db.QueryRow(`SELECT "name", "when_", "amount" FROM "converted" WHERE "name" = ?`, "short row").
		Scan(&name, &when, &amount)
	if err != nil {
		t.Fatalf("select short row: %v", err)
	}
	if when != "" || amount != "" {
		t.Errorf("short row padding = (%q, %q), want empty", when, amount)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := New(ctx, config.DBConfig{Table: "t", Columns: []string{"a"}}, 0); err == nil {
		t.Error("expected error for empty DSN")
	}
	if _, err := New(ctx, config.DBConfig{DSN: "x.db", Table: "t"}, 0); err == nil {
		t.Error("expected error for empty columns")
	}
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	got := createTableSQL("converted", []string{"a", "b"})
	want := `CREATE TABLE IF NOT EXISTS "converted" ("a" TEXT, "b" TEXT)`
	if got != want {
		t.Errorf("createTableSQL = %q, want %q", got, want)
	}
}
