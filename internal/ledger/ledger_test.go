package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("ledger file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		l.Close()
	}
}

func TestOpen_SchemaVersionSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	var version int
	if err := l.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}
