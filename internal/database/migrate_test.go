package database

import (
	"slices"
	"testing"
	"testing/fstest"
)

func TestPendingSortsAndSkipsApplied(t *testing.T) {
	files := []string{"003_c.sql", "001_a.sql", "002_b.sql"}
	applied := map[string]bool{"001_a.sql": true}

	got := pending(files, applied)
	want := []string{"002_b.sql", "003_c.sql"}
	if !slices.Equal(got, want) {
		t.Errorf("pending() = %v, want %v", got, want)
	}
	if files[0] != "003_c.sql" {
		t.Error("pending() must not reorder its input")
	}
}

func TestMigrationFilesIgnoresNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/001_init.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":    {Data: []byte("notes")},
	}

	files, err := migrationFiles(fsys)
	if err != nil {
		t.Fatalf("migrationFiles() error: %v", err)
	}
	if !slices.Equal(files, []string{"001_init.sql"}) {
		t.Errorf("migrationFiles() = %v", files)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := migrationFiles(migrationsFS)
	if err != nil {
		t.Fatalf("migrationFiles() error: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
}
