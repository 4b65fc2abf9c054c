// Package scanner drives a regression run: it renders every scene with the
// candidate and reference ray tracers, compares the image pairs and reports
// the results.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"raycheck/database"
	"raycheck/logging"
	"raycheck/refcache"
	"raycheck/renderer"
	"raycheck/report"
	"raycheck/scanner/processor"
	"raycheck/types"
	"raycheck/utils"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrSetup is returned when directories or executables are unusable
	ErrSetup = errors.New("invalid setup")

	// ErrReferenceUnusable aborts a run whose reference image cannot be loaded
	ErrReferenceUnusable = errors.New("reference image unusable")
)

// ReportName is the report file inside the output directory
const ReportName = "report.csv"

type driver struct {
	options   Options
	candidate *renderer.Renderer
	reference *renderer.Renderer
	proc      *processor.ImageProcessor
	collector *report.Collector
	results   chan<- ProcessTestResult
}

// Run executes a whole regression run. Interrupting ctx stops scheduling
// new tests; whatever was collected until then is still reported. Only an
// invalid setup or an unusable reference image ends a run without a report.
func Run(ctx context.Context, options Options) (*RunSummary, error) {
	if options.RefCacheDir == "" {
		options.RefCacheDir = filepath.Join(options.OutDir, "refcache")
	}
	if options.Jobs < 1 {
		options.Jobs = 1
	}

	if err := os.MkdirAll(options.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create %s: %v", ErrSetup, options.OutDir, err)
	}
	if err := utils.CheckDirs(options.SceneDir, options.OutDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	if err := utils.CheckFiles(options.Exec, options.RefBin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}

	summary := &RunSummary{}
	signature := ""
	if options.RefBin != "" {
		decision, sig, err := refcache.Validate(options.RefCacheDir, refcache.Inputs{
			Executable:  options.RefBin,
			SceneConfig: options.SceneConfig,
			Texture:     options.Texture,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot validate reference cache: %w", err)
		}
		summary.Decision = decision
		signature = sig
	}

	for _, dir := range []string{
		filepath.Join(options.OutDir, "image"),
		filepath.Join(options.OutDir, "stdio"),
		options.RefCacheDir,
		filepath.Join(options.OutDir, "diff"),
		filepath.Join(options.OutDir, "montage"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: cannot create %s: %v", ErrSetup, dir, err)
		}
	}

	scenes, err := DiscoverScenes(options.SceneDir)
	if err != nil {
		return nil, fmt.Errorf("cannot list scenes in %s: %w", options.SceneDir, err)
	}
	cases, err := BuildTestCases(options, scenes)
	if err != nil {
		return nil, err
	}

	summary.Run = database.NewRun(options.Exec, options.RefBin, signature)
	d := newDriver(options)

	stats := FileStats{totalTests: len(cases)}
	for _, tc := range cases {
		if d.reference != nil && !utils.FileExists(tc.RefImagePath) {
			stats.withRef++
		}
	}
	PrintStartupInfo(stats, options)

	resultsChan := make(chan ProcessTestResult, 100)
	d.results = resultsChan
	tracker := NewProgressTracker(stats, resultsChan, options.Progress)

	startTime := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(options.Jobs)
	for _, tc := range cases {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return d.runTest(gctx, tc)
		})
	}
	err = g.Wait()

	close(resultsChan)
	tracker.Stop()
	if err != nil {
		return nil, err
	}

	summary.Interrupted = ctx.Err() != nil
	summary.Processed, summary.Failed, summary.TimedOut = tracker.Counts()
	PrintCompletionStats(tracker, startTime, options)

	d.finish(summary)
	return summary, nil
}

func newDriver(options Options) *driver {
	d := &driver{
		options:   options,
		proc:      processor.NewImageProcessor(options.WindowSize, options.DebugMode),
		collector: report.NewCollector(),
	}
	if options.Exec != "" {
		d.candidate = &renderer.Renderer{
			Executable:  options.Exec,
			SceneConfig: options.SceneConfig,
			Texture:     options.Texture,
		}
	}
	if options.RefBin != "" {
		d.reference = &renderer.Renderer{
			Executable:  options.RefBin,
			SceneConfig: options.SceneConfig,
			Texture:     options.Texture,
		}
	}
	return d
}

// runTest renders and compares one scene. It only returns an error when the
// whole run must stop.
func (d *driver) runTest(ctx context.Context, tc types.TestCase) error {
	if d.reference != nil && !utils.FileExists(tc.RefImagePath) {
		logging.Info("executing: %s", d.reference.CommandLine(tc.ScenePath, tc.RefImagePath))
		err := d.reference.Run(ctx, tc.ScenePath, tc.RefImagePath, renderer.Stdio{}, d.options.ReferenceTimeLimit)
		if errors.Is(err, renderer.ErrInterrupted) {
			return nil
		}
		if err != nil {
			logging.Error("%s reference render failed: %v", tc.Name, err)
		}
	}

	timedOut := false
	var renderErr error
	if d.candidate != nil {
		// An image left over from an earlier run must never be scored
		if err := os.Remove(tc.ImagePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Error("Cannot remove old image %s: %v", tc.ImagePath, err)
			renderErr = err
		}
	}
	if d.candidate != nil && renderErr == nil {
		logging.Info("Running command: %s", d.candidate.CommandLine(tc.ScenePath, tc.ImagePath))
		err := d.candidate.Run(ctx, tc.ScenePath, tc.ImagePath,
			renderer.Stdio{Stdout: tc.StdoutPath, Stderr: tc.StderrPath}, d.options.TimeLimit)
		switch {
		case errors.Is(err, renderer.ErrInterrupted):
			return nil
		case errors.Is(err, renderer.ErrTimeout):
			logging.Error("%s Timeout", tc.Name)
			timedOut = true
			renderErr = err
		case err != nil:
			logging.Error("%s (Unknown)", tc.Name)
			logging.DebugLog("%s: %v", tc.Name, err)
			renderErr = err
		}
	}

	// A test in flight when the run was interrupted is dropped
	if ctx.Err() != nil {
		return nil
	}

	if d.options.NoCompare {
		d.results <- ProcessTestResult{Name: tc.Name, Success: renderErr == nil, TimedOut: timedOut, Error: renderErr}
		return nil
	}

	// A timed out or crashed renderer leaves no usable candidate image
	if renderErr != nil {
		d.fail(tc, timedOut, renderErr)
		return nil
	}

	candidate, err := d.proc.LoadImage(tc.ImagePath)
	if err != nil {
		logging.Error("Failed to load image %s because %v", tc.ImagePath, err)
		d.fail(tc, timedOut, err)
		return nil
	}

	reference, err := d.proc.LoadImage(tc.RefImagePath)
	if err != nil {
		return fmt.Errorf("%w: failed to load reference image %s, something is broken: %w",
			ErrReferenceUnusable, tc.RefImagePath, err)
	}

	cmp, err := d.proc.Compare(candidate, reference)
	if err != nil {
		logging.Error("%s cannot be compared: candidate %s, reference %s: %v",
			tc.Name, candidate.Shape(), reference.Shape(), err)
		d.fail(tc, timedOut, err)
		return nil
	}

	if err := d.proc.WriteArtifacts(tc, candidate, reference, cmp); err != nil {
		logging.Error("%s: %v", tc.Name, err)
	}

	d.collector.Add(types.MetricTuple{
		Name:  tc.Name,
		SSIM:  cmp.SSIM,
		RMSD:  cmp.RMSD,
		Index: tc.Index,
	})
	d.results <- ProcessTestResult{Name: tc.Name, Success: true, TimedOut: timedOut}
	return nil
}

func (d *driver) fail(tc types.TestCase, timedOut bool, err error) {
	d.collector.Add(types.WorstCase(tc.Name, tc.Index))
	d.results <- ProcessTestResult{Name: tc.Name, TimedOut: timedOut, Error: err}
}

// finish is the single exit point of a run that produced results: it writes
// the report, checks the cutoffs and records the history.
func (d *driver) finish(summary *RunSummary) {
	tuples := d.collector.Tuples()
	summary.Tuples = tuples

	if len(tuples) > 0 {
		path := filepath.Join(d.options.OutDir, ReportName)
		if err := report.WriteReport(path, tuples, !d.options.SuppressMemo); err != nil {
			logging.Error("%v", err)
		} else {
			summary.ReportPath = path
			logging.Info("raycheck results written to %s", path)
		}
	}

	summary.Regressions = checkCutoffs(d.options.CutoffsPath, tuples)
	for _, r := range summary.Regressions {
		logging.Warn("%s", r)
	}

	run := &summary.Run
	run.FinishedAt = time.Now()
	run.Interrupted = summary.Interrupted
	run.Total = len(tuples)
	run.Regressions = len(summary.Regressions)
	for _, t := range tuples {
		if t.Failed {
			run.Failed++
		}
	}
	if d.options.DB != nil {
		storeHistory(d.options, *run, tuples)
	}
}

func checkCutoffs(path string, tuples []types.MetricTuple) []report.Regression {
	if path == "" {
		return nil
	}
	cutoffs, warnings, err := report.LoadCutoffs(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn("Cutoff file %s does not exist, not computing regression cutoffs", path)
		} else {
			logging.Error("Cannot read cutoff file %s: %v", path, err)
		}
		return nil
	}
	for _, w := range warnings {
		if w.Malformed {
			logging.Error("%s", w)
		} else {
			logging.Warn("%s", w)
		}
	}
	return report.Check(tuples, cutoffs)
}

func storeHistory(options Options, run database.Run, tuples []types.MetricTuple) {
	if err := database.StoreRun(options.DB, run); err != nil {
		logging.Error("Cannot record run history: %v", err)
		return
	}
	if err := database.StoreResults(options.DB, run.ID, tuples); err != nil {
		logging.Error("Cannot record run results: %v", err)
		return
	}
	if options.DebugMode {
		logging.DebugLog("Stored run %s with %d results", run.ID, len(tuples))
	}
}
