package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrateFromScratch(t *testing.T) {
	conn := openMemoryDB(t)

	if err := Migrate(conn, nil); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// user_documents must exist after migration
	var name string
	err := conn.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='user_documents'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("user_documents table missing: %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := openMemoryDB(t)

	if err := Migrate(conn, nil); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}
	if err := Migrate(conn, nil); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 recorded migrations, got %d", count)
	}
}
