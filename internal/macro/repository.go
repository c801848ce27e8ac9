package macro

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for profile and run-history
// persistence. This abstraction allows different implementations
// (SQLite, mock, etc.) and enables unit testing without database
// dependencies.
type Repository interface {
	// Profile CRUD
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetBySlug(ctx context.Context, slug string) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Create(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, id string) error

	// Run history
	CreateRun(ctx context.Context, run *RunRecord) error
	UpdateRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, profileID string, limit int) ([]RunRecord, error)
}

// profileColumns is the SELECT column list for profile queries.
const profileColumns = `id, name, slug, description, enabled, sequence, config,
			sort_order, created_at, updated_at`

// runColumns is the SELECT column list for run-history queries.
const runColumns = `id, profile_id, trigger_source, status, cycles_requested,
			cycles_completed, steps_executed, steps_failed,
			started_at, completed_at, duration_ms, last_error`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a profile by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying profile by id: %w", err)
	}
	return profile, nil
}

// GetBySlug retrieves a profile by its slug.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE slug = ?`

	row := r.db.QueryRowContext(ctx, query, slug)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying profile by slug: %w", err)
	}
	return profile, nil
}

// List retrieves all profiles ordered by sort_order then name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY sort_order, name`
	return r.queryProfiles(ctx, query)
}

// Create inserts a new profile.
func (r *SQLiteRepository) Create(ctx context.Context, profile *Profile) error {
	sequenceJSON, err := json.Marshal(profile.Sequence)
	if err != nil {
		return fmt.Errorf("marshalling sequence: %w", err)
	}
	configJSON, err := json.Marshal(profile.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	// Timestamps are persisted at second precision; normalise the
	// in-memory struct so it matches what a later read returns.
	now := time.Now().UTC().Truncate(time.Second)
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	} else {
		profile.CreatedAt = profile.CreatedAt.UTC().Truncate(time.Second)
	}
	profile.UpdatedAt = now

	query := `
		INSERT INTO profiles (
			id, name, slug, description, enabled, sequence, config,
			sort_order, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		profile.ID,
		profile.Name,
		profile.Slug,
		nullableString(profile.Description),
		boolToInt(profile.Enabled),
		string(sequenceJSON),
		string(configJSON),
		profile.SortOrder,
		profile.CreatedAt.Format(time.RFC3339),
		profile.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// Update modifies an existing profile.
func (r *SQLiteRepository) Update(ctx context.Context, profile *Profile) error {
	sequenceJSON, err := json.Marshal(profile.Sequence)
	if err != nil {
		return fmt.Errorf("marshalling sequence: %w", err)
	}
	configJSON, err := json.Marshal(profile.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	profile.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
		UPDATE profiles SET
			name = ?, slug = ?, description = ?, enabled = ?,
			sequence = ?, config = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		profile.Name,
		profile.Slug,
		nullableString(profile.Description),
		boolToInt(profile.Enabled),
		string(sequenceJSON),
		string(configJSON),
		profile.SortOrder,
		profile.UpdatedAt.Format(time.RFC3339),
		profile.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("updating profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Delete removes a profile by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// CreateRun inserts a new run record.
func (r *SQLiteRepository) CreateRun(ctx context.Context, run *RunRecord) error {
	run.StartedAt = run.StartedAt.UTC().Truncate(time.Second)
	run.CompletedAt = truncateTimePtr(run.CompletedAt)

	query := `
		INSERT INTO run_history (
			id, profile_id, trigger_source, status, cycles_requested,
			cycles_completed, steps_executed, steps_failed,
			started_at, completed_at, duration_ms, last_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		nullableString(run.ProfileID),
		run.TriggerSource,
		string(run.Status),
		run.CyclesRequested,
		run.CyclesCompleted,
		run.StepsExecuted,
		run.StepsFailed,
		run.StartedAt.Format(time.RFC3339),
		nullableTime(run.CompletedAt),
		nullableInt(run.DurationMS),
		nullableString(run.LastError),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// UpdateRun updates an existing run record.
func (r *SQLiteRepository) UpdateRun(ctx context.Context, run *RunRecord) error {
	run.CompletedAt = truncateTimePtr(run.CompletedAt)

	query := `
		UPDATE run_history SET
			status = ?, cycles_completed = ?, steps_executed = ?,
			steps_failed = ?, completed_at = ?, duration_ms = ?, last_error = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.CyclesCompleted,
		run.StepsExecuted,
		run.StepsFailed,
		nullableTime(run.CompletedAt),
		nullableInt(run.DurationMS),
		nullableString(run.LastError),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run record by ID.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM run_history WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent runs, optionally filtered by profile.
// An empty profileID returns runs across all profiles.
func (r *SQLiteRepository) ListRuns(ctx context.Context, profileID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if profileID == "" {
		query := `SELECT ` + runColumns + ` FROM run_history ORDER BY started_at DESC LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, limit)
	} else {
		query := `SELECT ` + runColumns + ` FROM run_history WHERE profile_id = ? ORDER BY started_at DESC LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, profileID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, scanErr := scanRunFromRows(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// queryProfiles executes a query and returns a slice of profiles.
func (r *SQLiteRepository) queryProfiles(ctx context.Context, query string, args ...any) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		profile, scanErr := scanProfileFromRows(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning profile: %w", scanErr)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return profiles, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProfile scans a single sql.Row into a Profile.
func scanProfile(row *sql.Row) (*Profile, error) {
	return scanProfileRow(row)
}

// scanProfileFromRows scans a sql.Rows result into a Profile.
func scanProfileFromRows(rows *sql.Rows) (*Profile, error) {
	return scanProfileRow(rows)
}

func scanProfileRow(scanner rowScanner) (*Profile, error) {
	var p Profile
	var description sql.NullString
	var sequenceJSON, configJSON string
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&description,
		&enabled,
		&sequenceJSON,
		&configJSON,
		&p.SortOrder,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		p.Description = &description.String
	}
	p.Enabled = enabled != 0

	// Timestamps are stored as RFC3339 strings.
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		p.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		p.UpdatedAt = t
	}

	if sequenceJSON != "" && sequenceJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(sequenceJSON), &p.Sequence); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling sequence: %w", jsonErr)
		}
	}
	if p.Sequence == nil {
		p.Sequence = Sequence{}
	}

	if configJSON != "" && configJSON != "null" {
		if jsonErr := json.Unmarshal([]byte(configJSON), &p.Config); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling config: %w", jsonErr)
		}
	}

	return &p, nil
}

// scanRun scans a single sql.Row into a RunRecord.
func scanRun(row *sql.Row) (*RunRecord, error) {
	return scanRunRow(row)
}

// scanRunFromRows scans a sql.Rows result into a RunRecord.
func scanRunFromRows(rows *sql.Rows) (*RunRecord, error) {
	return scanRunRow(rows)
}

func scanRunRow(scanner rowScanner) (*RunRecord, error) {
	var r RunRecord
	var profileID, completedAt, lastError sql.NullString
	var durationMS sql.NullInt64
	var status string
	var startedAt string

	err := scanner.Scan(
		&r.ID,
		&profileID,
		&r.TriggerSource,
		&status,
		&r.CyclesRequested,
		&r.CyclesCompleted,
		&r.StepsExecuted,
		&r.StepsFailed,
		&startedAt,
		&completedAt,
		&durationMS,
		&lastError,
	)
	if err != nil {
		return nil, err
	}

	r.Status = State(status)
	if profileID.Valid {
		r.ProfileID = &profileID.String
	}
	if t, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
		r.StartedAt = t
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, completedAt.String); parseErr == nil {
			r.CompletedAt = &t
		}
	}
	if durationMS.Valid {
		d := int(durationMS.Int64)
		r.DurationMS = &d
	}
	if lastError.Valid {
		r.LastError = &lastError.String
	}

	return &r, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func truncateTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	trunc := t.UTC().Truncate(time.Second)
	return &trunc
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
