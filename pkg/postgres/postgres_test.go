package postgres

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/db"
)

// testDatabaseEnv names a disposable database used by the integration tests below
const testDatabaseEnv = "SHIFT_PLANNER_TEST_DATABASE_URL"

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "001_init.sql", entries[0].Name())

	content, err := fs.ReadFile(migrationsFS, "migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS planning_run")
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS assigned_slot")
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)

	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "002", migrations[1].Version)
	assert.Equal(t, "002_run_solutions.sql", migrations[1].Filename)
	for _, m := range migrations {
		assert.Len(t, m.Checksum, 64)
	}
}

func TestLoadMigrations_OrderAndNaming(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_later.sql":  {Data: []byte("SELECT 10;")},
		"m/002_second.sql": {Data: []byte("SELECT 2;")},
		"m/README.md":      {Data: []byte("notes")},
	}

	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "002_second.sql", migrations[0].Filename)
	assert.Equal(t, "010_later.sql", migrations[1].Filename)

	// Checksums depend on content only
	other, err := loadMigrations(fstest.MapFS{"m/002_second.sql": {Data: []byte("SELECT 2;")}}, "m")
	require.NoError(t, err)
	assert.Equal(t, migrations[0].Checksum, other[0].Checksum)

	_, err = loadMigrations(fstest.MapFS{"m/init.sql": {Data: []byte("SELECT 1;")}}, "m")
	assert.ErrorContains(t, err, "NNN_description.sql")

	_, err = loadMigrations(fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/001_b.sql": {Data: []byte("SELECT 1;")},
	}, "m")
	assert.ErrorContains(t, err, "share version 001")
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{
		{Version: "001", Filename: "001_init.sql", Checksum: "aaaaaaaaaaaaaaaa"},
		{Version: "002", Filename: "002_more.sql", Checksum: "bbbbbbbbbbbbbbbb"},
	}

	pending, err := pendingMigrations(all, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, all, pending)

	pending, err = pendingMigrations(all, map[string]string{"001": "aaaaaaaaaaaaaaaa"})
	require.NoError(t, err)
	assert.Equal(t, all[1:], pending)

	pending, err = pendingMigrations(all, map[string]string{"001": "aaaaaaaaaaaaaaaa", "002": "bbbbbbbbbbbbbbbb"})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = pendingMigrations(all, map[string]string{"001": "cccccccccccccccc"})
	assert.ErrorContains(t, err, "001_init.sql was changed after it was applied")

	_, err = pendingMigrations(all, map[string]string{"001": "aaaaaaaaaaaaaaaa", "003": "dddd"})
	assert.ErrorContains(t, err, "migration 003 applied")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	database, err := NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	require.NoError(t, database.RunMigrations(ctx))
	// Running twice is a no-op
	require.NoError(t, database.RunMigrations(ctx))
	return database
}

func TestDB_InsertAndReadRun(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	run := &db.PlanningRun{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		State:        "solver_accepted",
		Source:       "solver",
		SolverStatus: "optimal",
		Proven:       true,
		Objective:    2200,
		TotalCost:    22,
		TotalHours:   2,
	}
	slots := []db.AssignedSlot{
		{WorkerID: "EMP_002", DayID: "Mon", Shift: "Morning", Minutes: 60},
		{WorkerID: "EMP_003", DayID: "Mon", Shift: "Morning", Minutes: 60},
	}

	require.NoError(t, database.InsertRun(ctx, run, slots))

	runs, err := database.GetRuns(ctx)
	require.NoError(t, err)
	var found *db.PlanningRun
	for i := range runs {
		if runs[i].ID == run.ID {
			found = &runs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, *run, *found)

	stored, err := database.GetRunSlots(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, run.ID, stored[0].RunID)
	assert.Equal(t, "EMP_002", stored[0].WorkerID)
	assert.Equal(t, 60, stored[1].Minutes)

	// Duplicate IDs roll back the whole transaction
	err = database.InsertRun(ctx, run, nil)
	assert.Error(t, err)
}

func TestDB_ReportStoresFailedRuns(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	outcome := &services.Outcome{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		State:     services.StateSchedulingFailure,
		Conflicts: []services.Conflict{{Kind: services.ConflictCapacity, Entity: "schedule"}},
		Export:    schedule.Export{},
	}

	require.NoError(t, database.Report(ctx, outcome))

	slots, err := database.GetRunSlots(ctx, outcome.RunID)
	require.NoError(t, err)
	assert.Empty(t, slots)

	runs, err := database.GetRuns(ctx)
	require.NoError(t, err)
	for _, r := range runs {
		if r.ID == outcome.RunID {
			assert.False(t, r.Succeeded())
			assert.Equal(t, 1, r.Conflicts)
			return
		}
	}
	t.Fatalf("run %s not stored", outcome.RunID)
}
