package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAndClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	// Verify file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("Database directory was not created: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	db.Close()

	// Re-opening an existing database must re-run schema and
	// migrations without error
	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	db.Close()
}

func TestParseSQLiteTime(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2026-08-27T10:30:00Z", true},
		{"2026-08-27 10:30:00", true},
		{"2026-08-27T10:30:00+05:30", true},
		{"not a time", false},
		{"", false},
	}
	for _, tt := range tests {
		got := parseSQLiteTime(tt.input)
		if tt.ok && got.IsZero() {
			t.Errorf("parseSQLiteTime(%q) returned zero time", tt.input)
		}
		if !tt.ok && !got.IsZero() {
			t.Errorf("parseSQLiteTime(%q) = %v, want zero time", tt.input, got)
		}
	}
}
