package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raycheck/database"
	"raycheck/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func writeReport(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.csv"),
		[]byte("# memo line\nbox, 0.950000, 0.010000\nsphere, 0.000000, 1.000000\n"), 0o644))
}

func TestPromoteUsesConfigOut(t *testing.T) {
	root := t.TempDir()
	fromConfig := filepath.Join(root, "configured")
	writeReport(t, fromConfig)

	cfgPath := filepath.Join(root, "raycheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("out: "+fromConfig+"\n"), 0o644))

	out, err := execute(t, "promote", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "box\t0.950000\t0.010000\nsphere\t0.000000\t1.000000\n", out)
}

func TestPromoteFlagOverridesConfig(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "raycheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath,
		[]byte("out: "+filepath.Join(root, "missing")+"\n"), 0o644))

	flagOut := filepath.Join(root, "flag")
	writeReport(t, flagOut)
	cutoffs := filepath.Join(root, "cutoffs.csv")
	require.NoError(t, os.WriteFile(cutoffs, []byte("old\t0.5\t0.5\n"), 0o644))

	_, err := execute(t, "promote", "--config", cfgPath, "--out", flagOut,
		"--regression-cutoffs", cutoffs, "--write")
	require.NoError(t, err)

	data, err := os.ReadFile(cutoffs)
	require.NoError(t, err)
	assert.Equal(t, "old\t0.5\t0.5\nbox\t0.950000\t0.010000\nsphere\t0.000000\t1.000000\n", string(data))
}

func TestPromoteMissingReport(t *testing.T) {
	_, err := execute(t, "promote", "--report", filepath.Join(t.TempDir(), "report.csv"))
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "history.db")

	_, err := execute(t, "history", "--database", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database does not exist")

	db, err := database.InitDatabase(dbPath)
	require.NoError(t, err)
	run := database.NewRun("ray", "ray-solution", "abc")
	run.Total = 2
	run.Failed = 1
	require.NoError(t, database.StoreRun(db, run))
	require.NoError(t, database.StoreResults(db, run.ID, []types.MetricTuple{
		{Name: "box", SSIM: 0.95, RMSD: 0.01},
		types.WorstCase("sphere", 1),
	}))
	require.NoError(t, db.Close())

	out, err := execute(t, "history", "--database", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, run.ID[:8])
	assert.Contains(t, out, "tests 2  failed 1")
	assert.Contains(t, out, "- Total results: 2")

	out, err = execute(t, "history", "--database", dbPath, "--test", "sphere")
	require.NoError(t, err)
	assert.Contains(t, out, "History of sphere:")
	assert.Contains(t, out, "ssim 0.000000  rmsd 1.000000  (no image)")

	out, err = execute(t, "history", "--database", dbPath, "--test", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No results recorded for nothing.")
}

func TestRootRejectsBadSetup(t *testing.T) {
	root := t.TempDir()
	_, err := execute(t,
		"--scenes", filepath.Join(root, "nope"),
		"--out", filepath.Join(root, "out"),
		"--no-history",
		"--window-size", "4",
	)
	assert.Error(t, err)
}
