package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MigrationsFS is set by the migrations package at init time so the
// schema ships inside the binary. The daemon applies pending migrations
// on startup, before the profile registry loads.
//
//	//go:embed *.sql
//	var fsys embed.FS
//
//	func init() {
//	    database.MigrationsFS = fsys
//	}
var MigrationsFS embed.FS

// MigrationsDir is the directory within MigrationsFS holding the .sql
// files. "." when they sit at the root of the embedded filesystem.
var MigrationsDir = "migrations"

// Migration is one schema step, read from a
// YYYYMMDD_HHMMSS_description.up.sql file and its optional .down.sql
// counterpart.
type Migration struct {
	// Version orders migrations; it is the YYYYMMDD_HHMMSS filename
	// prefix.
	Version string

	// Name is the description part of the filename.
	Name string

	// UpSQL applies the migration.
	UpSQL string

	// DownSQL reverses it. Empty when no .down.sql file exists.
	DownSQL string
}

// MigrationRecord is a row of the schema_migrations ledger.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// Migrate applies every pending migration, oldest first.
//
// Each migration commits in its own transaction: when step N fails,
// steps before it stay applied, N rolls back, and later steps are not
// attempted. Re-running Migrate after fixing the failure continues from
// N. This matches SQLite's single-writer model and keeps a failed
// startup diagnosable down to the exact step.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.ensureLedger(ctx); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	all, err := readMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	pending, err := db.pendingOf(ctx, all)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration. A
// development and test aid; the daemon never calls it.
func (db *DB) MigrateDown(ctx context.Context) error {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1]

	all, err := readMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	var target *Migration
	for i := range all {
		if all[i].Version == latest.Version {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found in filesystem", latest.Version)
	}
	if target.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", latest.Version)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, target.DownSQL); err != nil {
		return fmt.Errorf("executing down SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schema_migrations WHERE version = ?", target.Version,
	); err != nil {
		return fmt.Errorf("removing migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rollback: %w", err)
	}
	return nil
}

// GetMigrationStatus reports the applied ledger and whatever remains
// pending. Surfaced through health checks.
func (db *DB) GetMigrationStatus(ctx context.Context) (applied []MigrationRecord, pending []Migration, err error) {
	applied, err = db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	all, err := readMigrations()
	if err != nil {
		return nil, nil, err
	}
	pending = selectPending(all, applied)
	return applied, pending, nil
}

// pendingOf returns the subset of all not yet in the ledger.
func (db *DB) pendingOf(ctx context.Context, all []Migration) ([]Migration, error) {
	if len(all) == 0 {
		return nil, nil
	}
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}
	return selectPending(all, applied), nil
}

func selectPending(all []Migration, applied []MigrationRecord) []Migration {
	seen := make(map[string]bool, len(applied))
	for _, r := range applied {
		seen[r.Version] = true
	}
	var pending []Migration
	for _, m := range all {
		if !seen[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// ensureLedger creates the schema_migrations table if needed.
func (db *DB) ensureLedger(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

// appliedMigrations returns the ledger ordered by version.
func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.DB.QueryContext(ctx,
		"SELECT version, applied_at FROM schema_migrations ORDER BY version",
	)
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		var appliedAt string
		if err := rows.Scan(&r.Version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt) //nolint:errcheck // We wrote the value
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return records, nil
}

// applyMigration runs one step and records it, atomically.
func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// readMigrations loads and orders every migration pair from the
// embedded filesystem. An unset MigrationsFS means the binary carries
// no schema, which is valid for tools that bring their own.
func readMigrations() ([]Migration, error) {
	var unset embed.FS
	if MigrationsFS == unset {
		return nil, nil
	}

	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, nil // directory absent means no migrations
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		version, desc, isUp, ok := splitMigrationName(name)
		if !ok {
			continue
		}

		sqlText, err := fs.ReadFile(MigrationsFS, filepath.Join(MigrationsDir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: desc}
			byVersion[version] = m
		}
		if isUp {
			m.UpSQL = string(sqlText)
			m.Name = desc
		} else {
			m.DownSQL = string(sqlText)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" {
			continue // orphan .down.sql
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// splitMigrationName parses YYYYMMDD_HHMMSS_description.up.sql (or
// .down.sql) into its version, description, and direction.
func splitMigrationName(name string) (version, desc string, isUp, ok bool) {
	base, found := strings.CutSuffix(name, ".sql")
	if !found {
		return "", "", false, false
	}

	switch {
	case strings.HasSuffix(base, ".up"):
		isUp = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return "", "", false, false
	}

	// date_time_description, where description may itself contain
	// underscores.
	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 {
		return "", "", false, false
	}
	version = parts[0] + "_" + parts[1]
	if len(parts) == 3 {
		desc = parts[2]
	} else {
		desc = base
	}
	return version, desc, isUp, true
}
