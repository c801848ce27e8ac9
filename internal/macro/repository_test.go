package macro

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ─── Test Setup ─────────────────────────────────────────────────────────────

// setupTestDB creates an in-memory SQLite database with the same schema
// the migrations produce.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE profiles (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		slug        TEXT NOT NULL UNIQUE,
		description TEXT,
		enabled     INTEGER NOT NULL DEFAULT 1,
		sequence    TEXT NOT NULL,
		config      TEXT NOT NULL,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE TABLE run_history (
		id               TEXT PRIMARY KEY,
		profile_id       TEXT,
		trigger_source   TEXT NOT NULL,
		status           TEXT NOT NULL,
		cycles_requested INTEGER NOT NULL DEFAULT 0,
		cycles_completed INTEGER NOT NULL DEFAULT 0,
		steps_executed   INTEGER NOT NULL DEFAULT 0,
		steps_failed     INTEGER NOT NULL DEFAULT 0,
		started_at       TEXT NOT NULL,
		completed_at     TEXT,
		duration_ms      INTEGER,
		last_error       TEXT
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(setupTestDB(t))
}

func sampleProfile(id, slug string) *Profile {
	desc := "Clicks through the login form"
	return &Profile{
		ID:          id,
		Name:        "Login Flow",
		Slug:        slug,
		Description: &desc,
		Enabled:     true,
		Sequence: Sequence{
			{Kind: KindLeftClick, Name: "open menu", Position: &Position{X: 100, Y: 200}},
			{Kind: KindTypeText, Text: "operator"},
			{Kind: KindWait, DurationMS: 250},
		},
		Config: RunConfig{
			Cycles:           3,
			InterStepDelayMS: 50,
			MoveDurationMS:   300,
			StopOnError:      true,
		},
		SortOrder: 2,
	}
}

func sampleRun(id string, profileID *string) *RunRecord {
	return &RunRecord{
		ID:              id,
		ProfileID:       profileID,
		TriggerSource:   "api",
		Status:          StateRunning,
		CyclesRequested: 3,
		StartedAt:       time.Now().UTC(),
	}
}

// ─── Profile CRUD ───────────────────────────────────────────────────────────

func TestRepository_CreateAndGetByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	original := sampleProfile("prof-1", "login-flow")
	if err := repo.Create(ctx, original); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "prof-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Name != original.Name {
		t.Errorf("Name = %q, want %q", got.Name, original.Name)
	}
	if got.Slug != original.Slug {
		t.Errorf("Slug = %q, want %q", got.Slug, original.Slug)
	}
	if got.Description == nil || *got.Description != *original.Description {
		t.Errorf("Description = %v, want %q", got.Description, *original.Description)
	}
	if !got.Enabled {
		t.Error("expected Enabled to round-trip as true")
	}
	if got.SortOrder != 2 {
		t.Errorf("SortOrder = %d, want 2", got.SortOrder)
	}
	if len(got.Sequence) != 3 {
		t.Fatalf("Sequence length = %d, want 3", len(got.Sequence))
	}
	if got.Sequence[0].Kind != KindLeftClick {
		t.Errorf("Sequence[0].Kind = %q, want %q", got.Sequence[0].Kind, KindLeftClick)
	}
	if got.Sequence[0].Position == nil || got.Sequence[0].Position.X != 100 {
		t.Errorf("Sequence[0].Position = %v, want {100 200}", got.Sequence[0].Position)
	}
	if got.Sequence[1].Text != "operator" {
		t.Errorf("Sequence[1].Text = %q, want %q", got.Sequence[1].Text, "operator")
	}
	if got.Sequence[2].DurationMS != 250 {
		t.Errorf("Sequence[2].DurationMS = %d, want 250", got.Sequence[2].DurationMS)
	}
	if got.Config.Cycles != 3 || got.Config.InterStepDelayMS != 50 || !got.Config.StopOnError {
		t.Errorf("Config did not round-trip: %+v", got.Config)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set on create")
	}
}

func TestRepository_GetBySlug(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleProfile("prof-1", "nightly-export")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetBySlug(ctx, "nightly-export")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if got.ID != "prof-1" {
		t.Errorf("ID = %q, want prof-1", got.ID)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetByID(context.Background(), "no-such-profile")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestRepository_GetBySlug_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetBySlug(context.Background(), "no-such-slug")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestRepository_Create_DuplicateSlug(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleProfile("prof-1", "login-flow")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	err := repo.Create(ctx, sampleProfile("prof-2", "login-flow"))
	if !errors.Is(err, ErrProfileExists) {
		t.Errorf("expected ErrProfileExists, got %v", err)
	}
}

func TestRepository_Create_TimestampsMatchPersisted(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := sampleProfile("prof-1", "login-flow")
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "prof-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	// The in-memory struct must agree with the stored row, else a
	// later Update sees a phantom timestamp change.
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt: stored %v, in-memory %v", got.CreatedAt, p.CreatedAt)
	}
	if !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("UpdatedAt: stored %v, in-memory %v", got.UpdatedAt, p.UpdatedAt)
	}
	if p.CreatedAt.Nanosecond() != 0 {
		t.Errorf("CreatedAt carries sub-second precision: %v", p.CreatedAt)
	}
}

func TestRepository_Create_NilDescription(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := sampleProfile("prof-1", "login-flow")
	p.Description = nil
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "prof-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Description != nil {
		t.Errorf("Description = %q, want nil", *got.Description)
	}
}

func TestRepository_List_OrderedBySortOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := sampleProfile("prof-a", "slug-a")
	first.SortOrder = 5
	second := sampleProfile("prof-b", "slug-b")
	second.SortOrder = 1

	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	profiles, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].ID != "prof-b" || profiles[1].ID != "prof-a" {
		t.Errorf("wrong order: got %s, %s", profiles[0].ID, profiles[1].ID)
	}
}

func TestRepository_List_Empty(t *testing.T) {
	repo := setupRepo(t)

	profiles, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected no profiles, got %d", len(profiles))
	}
}

func TestRepository_Update(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := sampleProfile("prof-1", "login-flow")
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	createdAt := p.CreatedAt

	p.Name = "Login Flow v2"
	p.Enabled = false
	p.Sequence = Sequence{{Kind: KindHotkey, Keys: []string{"ctrl", "s"}}}
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "prof-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Login Flow v2" {
		t.Errorf("Name = %q, want %q", got.Name, "Login Flow v2")
	}
	if got.Enabled {
		t.Error("expected Enabled to update to false")
	}
	if len(got.Sequence) != 1 || got.Sequence[0].Kind != KindHotkey {
		t.Errorf("Sequence did not update: %+v", got.Sequence)
	}
	if len(got.Sequence) == 1 && len(got.Sequence[0].Keys) != 2 {
		t.Errorf("Keys = %v, want [ctrl s]", got.Sequence[0].Keys)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt changed on update: %v -> %v", createdAt, got.CreatedAt)
	}
}

func TestRepository_Update_NotFound(t *testing.T) {
	repo := setupRepo(t)

	err := repo.Update(context.Background(), sampleProfile("no-such", "no-such"))
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestRepository_Update_SlugConflict(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleProfile("prof-1", "slug-one")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second := sampleProfile("prof-2", "slug-two")
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	second.Slug = "slug-one"
	err := repo.Update(ctx, second)
	if !errors.Is(err, ErrProfileExists) {
		t.Errorf("expected ErrProfileExists, got %v", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleProfile("prof-1", "login-flow")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Delete(ctx, "prof-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := repo.GetByID(ctx, "prof-1")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound after delete, got %v", err)
	}
}

func TestRepository_Delete_NotFound(t *testing.T) {
	repo := setupRepo(t)

	err := repo.Delete(context.Background(), "no-such-profile")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

// ─── Run History ────────────────────────────────────────────────────────────

func TestRepository_CreateAndGetRun(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	profileID := "prof-1"
	run := sampleRun("run-1", &profileID)
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ProfileID == nil || *got.ProfileID != "prof-1" {
		t.Errorf("ProfileID = %v, want prof-1", got.ProfileID)
	}
	if got.TriggerSource != "api" {
		t.Errorf("TriggerSource = %q, want api", got.TriggerSource)
	}
	if got.Status != StateRunning {
		t.Errorf("Status = %q, want %q", got.Status, StateRunning)
	}
	if got.CyclesRequested != 3 {
		t.Errorf("CyclesRequested = %d, want 3", got.CyclesRequested)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if got.CompletedAt != nil || got.DurationMS != nil || got.LastError != nil {
		t.Error("expected nullable fields to be nil on a running record")
	}
}

func TestRepository_CreateRun_TimestampsMatchPersisted(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	run := sampleRun("run-1", nil)
	completed := time.Now().UTC().Add(3 * time.Second)
	run.CompletedAt = &completed
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt: stored %v, in-memory %v", got.StartedAt, run.StartedAt)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(*run.CompletedAt) {
		t.Errorf("CompletedAt: stored %v, in-memory %v", got.CompletedAt, run.CompletedAt)
	}
}

func TestRepository_CreateRun_NilProfileID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	run := sampleRun("run-adhoc", nil)
	run.TriggerSource = "adhoc"
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-adhoc")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ProfileID != nil {
		t.Errorf("ProfileID = %v, want nil for ad-hoc run", *got.ProfileID)
	}
}

func TestRepository_UpdateRun(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	run := sampleRun("run-1", nil)
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	completed := run.StartedAt.Add(4 * time.Second)
	duration := 4000
	lastErr := "driver refused key"
	run.Status = StateFailed
	run.CyclesCompleted = 2
	run.StepsExecuted = 7
	run.StepsFailed = 1
	run.CompletedAt = &completed
	run.DurationMS = &duration
	run.LastError = &lastErr
	if err := repo.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != StateFailed {
		t.Errorf("Status = %q, want %q", got.Status, StateFailed)
	}
	if got.CyclesCompleted != 2 || got.StepsExecuted != 7 || got.StepsFailed != 1 {
		t.Errorf("counters did not round-trip: %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
	}
	if got.DurationMS == nil || *got.DurationMS != 4000 {
		t.Errorf("DurationMS = %v, want 4000", got.DurationMS)
	}
	if got.LastError == nil || *got.LastError != lastErr {
		t.Errorf("LastError = %v, want %q", got.LastError, lastErr)
	}
}

func TestRepository_UpdateRun_NotFound(t *testing.T) {
	repo := setupRepo(t)

	err := repo.UpdateRun(context.Background(), sampleRun("no-such-run", nil))
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRepository_GetRun_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRepository_ListRuns_FilterByProfile(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	profileA := "prof-a"
	profileB := "prof-b"
	base := time.Now().UTC().Truncate(time.Second)
	for i, pid := range []*string{&profileA, &profileB, &profileA, nil} {
		run := sampleRun(fmt.Sprintf("run-%d", i), pid)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	all, err := repo.ListRuns(ctx, "", 50)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}
	// Most recent first.
	if all[0].ID != "run-3" {
		t.Errorf("first run = %s, want run-3", all[0].ID)
	}

	filtered, err := repo.ListRuns(ctx, "prof-a", 50)
	if err != nil {
		t.Fatalf("ListRuns filtered failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 runs for prof-a, got %d", len(filtered))
	}
	for _, r := range filtered {
		if r.ProfileID == nil || *r.ProfileID != "prof-a" {
			t.Errorf("run %s has ProfileID %v, want prof-a", r.ID, r.ProfileID)
		}
	}
}

func TestRepository_ListRuns_LimitClamped(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 15; i++ {
		run := sampleRun(fmt.Sprintf("run-%02d", i), nil)
		run.StartedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	// Zero and negative limits fall back to the default of 10.
	runs, err := repo.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 10 {
		t.Errorf("expected default limit of 10, got %d runs", len(runs))
	}

	runs, err = repo.ListRuns(ctx, "", 5)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 5 {
		t.Errorf("expected 5 runs, got %d", len(runs))
	}
}

func TestRepository_ListRuns_Empty(t *testing.T) {
	repo := setupRepo(t)

	runs, err := repo.ListRuns(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
