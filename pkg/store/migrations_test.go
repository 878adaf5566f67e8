package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMigrationFiles_SortedByName(t *testing.T) {
	dir := t.TempDir()

	files := []struct {
		name    string
		content string
	}{
		{"0003_add_index.sql", "CREATE INDEX idx ON donations(intent);"},
		{"0001_init.sql", "CREATE TABLE donations (id UUID PRIMARY KEY);"},
		{"0002_bindings.sql", "CREATE TABLE intent_bindings (identifier TEXT PRIMARY KEY);"},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), []byte(f.content), 0644); err != nil {
			t.Fatalf("store:migrations_test - failed to write test file %s: %v", f.name, err)
		}
	}

	result, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("store:migrations_test - unexpected error: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("store:migrations_test - expected 3 migrations, got %d", len(result))
	}
	if result[0] != "CREATE TABLE donations (id UUID PRIMARY KEY);" {
		t.Errorf("store:migrations_test - expected init migration first, got %q", result[0])
	}
	if result[2] != "CREATE INDEX idx ON donations(intent);" {
		t.Errorf("store:migrations_test - expected index migration last, got %q", result[2])
	}
}

func TestLoadMigrationFiles_SkipsNonSQLEntries(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "0001_init.sql"), []byte("CREATE TABLE t1;"), 0644); err != nil {
		t.Fatalf("store:migrations_test - failed to write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Migrations"), 0644); err != nil {
		t.Fatalf("store:migrations_test - failed to write file: %v", err)
	}
	// A directory whose name ends in .sql must still be skipped.
	if err := os.Mkdir(filepath.Join(dir, "archive.sql"), 0755); err != nil {
		t.Fatalf("store:migrations_test - failed to create subdir: %v", err)
	}

	result, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("store:migrations_test - unexpected error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("store:migrations_test - expected 1 migration, got %d", len(result))
	}
}

func TestLoadMigrationFiles_EmptyDir(t *testing.T) {
	result, err := LoadMigrationFiles(t.TempDir())
	if err != nil {
		t.Fatalf("store:migrations_test - unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("store:migrations_test - expected empty result, got %d items", len(result))
	}
}

func TestLoadMigrationFiles_NonExistentDir(t *testing.T) {
	_, err := LoadMigrationFiles(filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Error("store:migrations_test - expected error for non-existent directory")
	}
}
