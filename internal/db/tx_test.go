package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func countKV(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func TestWithTx_Success(t *testing.T) {
	conn := setupTestDB(t)

	err := WithTx(context.Background(), conn, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, "a", "1")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	if got := countKV(t, conn); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	conn := setupTestDB(t)
	testErr := errors.New("test error")

	err := WithTx(context.Background(), conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, "a", "1"); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, "b", "2"); err != nil {
			return err
		}
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}
	if got := countKV(t, conn); got != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", got)
	}
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ripple.db")

	conn, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"tracks", "kv", "schema_version"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Reopening must not fail on existing schema.
	conn.Close()
	conn2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	conn2.Close()
}

func TestNullString(t *testing.T) {
	if NullString("").Valid {
		t.Error("empty string should map to NULL")
	}
	if got := NullStringValue(NullString("x")); got != "x" {
		t.Errorf("round trip = %q, want %q", got, "x")
	}
	if got := NullStringValue(sql.NullString{}); got != "" {
		t.Errorf("NULL value = %q, want empty", got)
	}
}
