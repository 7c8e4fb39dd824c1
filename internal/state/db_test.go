package state

import (
	"os"
	"path/filepath"
	"testing"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	// Migrating twice must not error or re-apply migrations.
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	row := db.QueryRow("SELECT COUNT(*) FROM schema_version")
	var n int
	if err := row.Scan(&n); err != nil {
		t.Fatalf("scan schema_version count: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 applied migrations, got %d", n)
	}
}

func TestProjectDBPath(t *testing.T) {
	got := ProjectDBPath("/tmp/demo")
	want := filepath.Join("/tmp/demo", ".loom", "state.db")
	if got != want {
		t.Errorf("ProjectDBPath = %q, want %q", got, want)
	}
}
