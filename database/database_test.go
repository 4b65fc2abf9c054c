package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raycheck/types"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitDatabaseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := InitDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestInitDatabaseAddsRegressionsColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	old, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		candidate TEXT,
		reference TEXT,
		signature TEXT,
		interrupted INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	db, err := InitDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	run := NewRun("ray", "ray-solution", "abc")
	run.Regressions = 2
	require.NoError(t, StoreRun(db, run))
	runs, err := ListRuns(db, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Regressions)
}

func TestStoreAndListRuns(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := NewRun("build/bin/ray", "ray-solution", "sig")
		run.StartedAt = base.Add(time.Duration(i) * time.Hour)
		run.FinishedAt = run.StartedAt.Add(time.Minute)
		run.Total = 10 + i
		run.Failed = i
		run.Interrupted = i == 2
		require.NoError(t, StoreRun(db, run))
		ids = append(ids, run.ID)
	}
	assert.NotEqual(t, ids[0], ids[1])

	runs, err := ListRuns(db, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.True(t, runs[0].Interrupted)
	assert.False(t, runs[1].Interrupted)
	assert.Equal(t, 12, runs[0].Total)
	assert.True(t, base.Add(2*time.Hour).Equal(runs[0].StartedAt))
	assert.True(t, base.Add(2*time.Hour+time.Minute).Equal(runs[0].FinishedAt))
	assert.Equal(t, "ray-solution", runs[0].Reference)

	// Updating a run replaces it
	runs[0].Regressions = 4
	require.NoError(t, StoreRun(db, runs[0]))
	all, err := ListRuns(db, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 4, all[0].Regressions)
}

func TestStoreResultsAndHistory(t *testing.T) {
	db := openTestDB(t)

	first := NewRun("ray", "ref", "sig")
	first.StartedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := NewRun("ray", "ref", "sig")
	second.StartedAt = first.StartedAt.Add(24 * time.Hour)
	require.NoError(t, StoreRun(db, first))
	require.NoError(t, StoreRun(db, second))

	require.NoError(t, StoreResults(db, first.ID, []types.MetricTuple{
		{Name: "box", SSIM: 0.91, RMSD: 0.04, Index: 0},
		types.WorstCase("sphere", 1),
	}))
	require.NoError(t, StoreResults(db, second.ID, []types.MetricTuple{
		{Name: "box", SSIM: 0.99, RMSD: 0.001, Index: 0},
		{Name: "sphere", SSIM: 0.97, RMSD: 0.01, Index: 1},
		{Name: "sphere", SSIM: 0.98, RMSD: 0.009, Index: 1},
	}))

	tuples, err := RunResults(db, first.ID)
	require.NoError(t, err)
	require.Len(t, tuples, 2)
	assert.Equal(t, "box", tuples[0].Name)
	assert.True(t, tuples[1].Failed)
	assert.Equal(t, 1.0, tuples[1].RMSD)

	history, err := TestHistory(db, "sphere", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].RunID)
	assert.Equal(t, 0.98, history[0].SSIM)
	assert.Equal(t, first.ID, history[1].RunID)
	assert.True(t, history[1].Failed)

	limited, err := TestHistory(db, "box", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 0.99, limited[0].SSIM)

	stats, err := GetRunStats(db)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 4, stats.TotalResults)
	assert.Equal(t, 2, stats.UniqueTests)
}
