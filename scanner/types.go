package scanner

import (
	"database/sql"
	"sync"
	"time"

	"raycheck/database"
	"raycheck/refcache"
	"raycheck/report"
	"raycheck/types"
)

// Options defines the options of one harness run
type Options struct {
	SceneDir    string
	OutDir      string
	RefCacheDir string

	// Exec and RefBin are the candidate and reference renderers; an empty
	// path skips that renderer
	Exec        string
	RefBin      string
	SceneConfig string
	Texture     string

	TimeLimit          time.Duration
	ReferenceTimeLimit time.Duration

	WindowSize   int
	Jobs         int
	NoCompare    bool
	CutoffsPath  string
	SuppressMemo bool

	// DB receives the run history when set
	DB        *sql.DB
	Progress  bool
	DebugMode bool
}

// RunSummary describes a finished (or interrupted) run
type RunSummary struct {
	Run         database.Run
	Decision    refcache.Decision
	Tuples      []types.MetricTuple
	Regressions []report.Regression
	ReportPath  string
	Interrupted bool
	Processed   int
	Failed      int
	TimedOut    int
}

// ProcessTestResult holds the outcome of one test case
type ProcessTestResult struct {
	Name     string
	Success  bool
	TimedOut bool
	Error    error
}

// FileStats tracks information about tests to be processed
type FileStats struct {
	totalTests int
	withRef    int
}

// ProgressTracker tracks progress of the run
type ProgressTracker struct {
	processed  int
	failed     int
	timedOut   int
	totalTests int
	ticker     *time.Ticker
	done       chan struct{}
	finished   chan struct{}
	display    bool
	mu         sync.Mutex
}
