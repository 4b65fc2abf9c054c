package database

import (
	"database/sql"
	"fmt"
	"time"

	"raycheck/logging"
	"raycheck/types"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout sorts lexically in chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one harness invocation
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Candidate   string
	Reference   string
	Signature   string
	Interrupted bool
	Total       int
	Failed      int
	Regressions int
}

// NewRun creates a run record with a fresh identifier
func NewRun(candidate, reference, signature string) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Candidate: candidate,
		Reference: reference,
		Signature: signature,
	}
}

// ResultRecord is one stored metric tuple together with its run time
type ResultRecord struct {
	RunID     string
	StartedAt time.Time
	types.MetricTuple
}

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		candidate TEXT,
		reference TEXT,
		signature TEXT,
		interrupted INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		ssim REAL NOT NULL,
		rmsd REAL NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		UNIQUE(run_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_results_name ON results(name);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	// Databases created before regression tracking lack the column
	var hasRegressionsColumn bool
	err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name='regressions'").Scan(&hasRegressionsColumn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error checking for regressions column: %w", err)
	}

	if !hasRegressionsColumn {
		if _, err = db.Exec("ALTER TABLE runs ADD COLUMN regressions INTEGER NOT NULL DEFAULT 0;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("error adding regressions column: %w", err)
		}
		logging.DebugLog("Added 'regressions' column to existing database schema")
	}

	return db, nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// StoreRun inserts or updates a run record
func StoreRun(db *sql.DB, run Run) error {
	var finished interface{}
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(timeLayout)
	}

	_, err := db.Exec(`
		INSERT OR REPLACE INTO runs (
			id, started_at, finished_at, candidate, reference, signature, interrupted, total, failed, regressions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		finished,
		run.Candidate,
		run.Reference,
		run.Signature,
		run.Interrupted,
		run.Total,
		run.Failed,
		run.Regressions,
	)
	if err != nil {
		return fmt.Errorf("cannot store run %s: %w", run.ID, err)
	}
	return nil
}

// StoreResults stores the metric tuples of a run in a single transaction.
// A later tuple with the same name replaces an earlier one.
func StoreResults(db *sql.DB, runID string, tuples []types.MetricTuple) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}

	// Prepare statement to avoid SQL injection
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO results (run_id, name, ssim, rmsd, failed, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("cannot prepare statement for run %s: %w", runID, err)
	}
	defer stmt.Close()

	for _, t := range tuples {
		if _, err := stmt.Exec(runID, t.Name, t.SSIM, t.RMSD, t.Failed, t.Index); err != nil {
			tx.Rollback()
			return fmt.Errorf("cannot insert result %s: %w", t.Name, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func ListRuns(db *sql.DB, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, candidate, reference, signature,
		interrupted, total, failed, regressions FROM runs ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                         Run
			started                     string
			finished                    sql.NullString
			candidate, reference, sigNS sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &candidate, &reference, &sigNS,
			&run.Interrupted, &run.Total, &run.Failed, &run.Regressions); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		run.Candidate = candidate.String
		run.Reference = reference.String
		run.Signature = sigNS.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// TestHistory returns the stored results of one test, most recent first
func TestHistory(db *sql.DB, name string, limit int) ([]ResultRecord, error) {
	query := `SELECT r.run_id, runs.started_at, r.name, r.ssim, r.rmsd, r.failed, r.position
		FROM results r JOIN runs ON runs.id = r.run_id
		WHERE r.name = ? ORDER BY runs.started_at DESC`
	args := []interface{}{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", name, err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		var started string
		if err := rows.Scan(&rec.RunID, &started, &rec.Name, &rec.SSIM, &rec.RMSD, &rec.Failed, &rec.Index); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.StartedAt = parseTime(started)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunResults returns the results stored for one run in discovery order
func RunResults(db *sql.DB, runID string) ([]types.MetricTuple, error) {
	rows, err := db.Query(`SELECT name, ssim, rmsd, failed, position FROM results
		WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results of run %s: %w", runID, err)
	}
	defer rows.Close()

	var tuples []types.MetricTuple
	for rows.Next() {
		var t types.MetricTuple
		if err := rows.Scan(&t.Name, &t.SSIM, &t.RMSD, &t.Failed, &t.Index); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		tuples = append(tuples, t)
	}
	return tuples, rows.Err()
}

// RunStats contains statistics over the whole history
type RunStats struct {
	TotalRuns    int
	TotalResults int
	UniqueTests  int
}

// GetRunStats retrieves statistics about stored runs
func GetRunStats(db *sql.DB) (*RunStats, error) {
	var stats RunStats

	if err := db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM results").Scan(&stats.TotalResults); err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	if err := db.QueryRow("SELECT COUNT(DISTINCT name) FROM results").Scan(&stats.UniqueTests); err != nil {
		return nil, fmt.Errorf("failed to count tests: %w", err)
	}

	return &stats, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		logging.DebugLog("Cannot parse stored time %q: %v", s, err)
	}
	return t
}
