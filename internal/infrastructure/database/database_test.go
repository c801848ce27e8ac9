package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens a throwaway database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "clickflow.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestOpen_CreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "clickflow.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	// A fresh install points at a data directory that does not exist
	// yet, Open has to make it.
	dbPath := filepath.Join(t.TempDir(), "data", "clickflow", "clickflow.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("database directory was not created")
	}
}

func TestOpen_RestrictsFilePermissions(t *testing.T) {
	// Profile sequences can carry typed credentials, so the file must
	// be owner-only.
	dbPath := filepath.Join(t.TempDir(), "clickflow.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestOpen_WALMode(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	var mode string
	err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("PRAGMA query error = %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_NilSafe(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestExecAndQuery(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE scratch_profiles (
			id INTEGER PRIMARY KEY,
			slug TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("ExecContext() CREATE error = %v", err)
	}

	result, err := db.ExecContext(ctx,
		"INSERT INTO scratch_profiles (slug) VALUES (?)", "login-flow")
	if err != nil {
		t.Fatalf("ExecContext() INSERT error = %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("LastInsertId() error = %v", err)
	}
	if id != 1 {
		t.Errorf("LastInsertId() = %v, want 1", id)
	}

	var slug string
	err = db.QueryRowContext(ctx,
		"SELECT slug FROM scratch_profiles WHERE id = ?", id).Scan(&slug)
	if err != nil {
		t.Fatalf("QueryRowContext() error = %v", err)
	}
	if slug != "login-flow" {
		t.Errorf("slug = %q, want login-flow", slug)
	}
}

func TestBeginTx(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	_, err := db.ExecContext(ctx,
		"CREATE TABLE scratch_runs (id INTEGER PRIMARY KEY, status TEXT)")
	if err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	rowCount := func(status string) int {
		t.Helper()
		var n int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM scratch_runs WHERE status = ?", status).Scan(&n)
		if err != nil {
			t.Fatalf("SELECT error = %v", err)
		}
		return n
	}

	t.Run("commit persists", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO scratch_runs (status) VALUES (?)", "completed"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if got := rowCount("completed"); got != 1 {
			t.Errorf("expected 1 committed row, got %d", got)
		}
	})

	t.Run("rollback discards", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO scratch_runs (status) VALUES (?)", "aborted"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		if got := rowCount("aborted"); got != 0 {
			t.Errorf("expected 0 rolled-back rows, got %d", got)
		}
	})
}

func TestStats_SingleWriter(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	// One writer connection; SQLite serialises writes anyway and a
	// second one only buys lock contention.
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %v, want 1", got)
	}
}
