package scanner

import (
	"fmt"
	"os"
	"time"

	"raycheck/logging"

	"github.com/mattn/go-isatty"
)

// NewProgressTracker initializes the progress tracker. The periodic progress
// line is only drawn when enabled and stdout is a terminal.
func NewProgressTracker(stats FileStats, resultsChan <-chan ProcessTestResult, enabled bool) *ProgressTracker {
	tracker := &ProgressTracker{
		totalTests: stats.totalTests,
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
		display:    enabled && isatty.IsTerminal(os.Stdout.Fd()),
	}

	// Start progress display goroutine
	if tracker.display {
		tracker.ticker = time.NewTicker(500 * time.Millisecond)
		go tracker.displayProgress()
	}

	// Start result processor goroutine
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.failed > 0 {
				fmt.Printf("\rProgress: %d/%d (Failed: %d, Timeouts: %d)", p.processed, p.totalTests, p.failed, p.timedOut)
			} else {
				fmt.Printf("\rProgress: %d/%d", p.processed, p.totalTests)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on test results
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessTestResult) {
	defer close(p.finished)
	for result := range resultsChan {
		p.mu.Lock()
		p.processed++
		if result.TimedOut {
			p.timedOut++
		}
		if !result.Success {
			p.failed++
			errMsg := ""
			if result.Error != nil {
				errMsg = result.Error.Error()
			}
			logging.LogTestProcessed(result.Name, false, errMsg)
		} else {
			logging.LogTestProcessed(result.Name, true, "")
		}
		p.mu.Unlock()
	}
}

// Stop waits for the results channel to drain and ends the display. The
// channel must be closed first.
func (p *ProgressTracker) Stop() {
	<-p.finished
	if p.display {
		p.ticker.Stop()
		close(p.done)
		fmt.Println()
	}
}

// Counts returns processed, failed and timed out test counts
func (p *ProgressTracker) Counts() (processed, failed, timedOut int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.failed, p.timedOut
}

// PrintStartupInfo displays information about the run before starting
func PrintStartupInfo(stats FileStats, options Options) {
	logging.Info("Found %d scenes in %s", stats.totalTests, options.SceneDir)
	if options.Jobs > 1 {
		logging.Info("Running %d tests in parallel", options.Jobs)
	}

	if options.DebugMode {
		logging.DebugLog("Scenes: %d, reference renders needed: %d, window size: %d, time limit: %s",
			stats.totalTests, stats.withRef, options.WindowSize, options.TimeLimit)
	}
}

// PrintCompletionStats displays statistics after the run
func PrintCompletionStats(tracker *ProgressTracker, startTime time.Time, options Options) {
	elapsed := time.Since(startTime)
	processed, failed, timedOut := tracker.Counts()

	if options.DebugMode {
		logging.DebugLog("Run completed in %v. Processed: %d, Failed: %d, Timeouts: %d",
			elapsed, processed, failed, timedOut)
	}

	logging.Info("Processed %d/%d tests in %v", processed, tracker.totalTests, elapsed.Round(time.Second))
	if failed > 0 {
		logging.Info("%d tests produced no usable image (%d timed out)", failed, timedOut)
	}
}
