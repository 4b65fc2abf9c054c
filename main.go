package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"raycheck/config"
	"raycheck/database"
	"raycheck/logging"
	"raycheck/report"
	"raycheck/scanner"
	"raycheck/signalhandler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Fatal("%v", err)
		logging.CloseLogger()
		os.Exit(1)
	}
}

func runHarness(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = signalhandler.GetOptimalProcs()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup debug logging if enabled
	if cfg.Debug {
		if err := logging.SetupLogger(cfg.LogFile); err != nil {
			logging.Warn("Failed to setup logging: %v", err)
		} else {
			logging.Info("Debug mode enabled. Logging to: %s", cfg.LogFile)
			defer logging.CloseLogger()
		}
	}

	ctx, stop := signalhandler.NotifyContext(context.Background())
	defer stop()

	var db *sql.DB
	if cfg.History {
		db = openHistory(cfg)
		if db != nil {
			defer db.Close()
		}
	}

	startTime := time.Now()
	summary, err := scanner.Run(ctx, scanner.Options{
		SceneDir:           cfg.Scenes,
		OutDir:             cfg.Out,
		RefCacheDir:        cfg.RefCacheDir(),
		Exec:               cfg.Exec,
		RefBin:             cfg.RefBin,
		SceneConfig:        cfg.JSON,
		Texture:            cfg.Cubemap,
		TimeLimit:          cfg.CandidateTimeout(),
		ReferenceTimeLimit: cfg.ReferenceTimeout(),
		WindowSize:         cfg.WindowSize,
		Jobs:               cfg.Jobs,
		NoCompare:          cfg.NoCompare,
		CutoffsPath:        cfg.RegressionCutoffs,
		SuppressMemo:       cfg.SuppressMemo,
		DB:                 db,
		Progress:           cfg.Progress,
		DebugMode:          cfg.Debug,
	})
	if err != nil {
		if errors.Is(err, scanner.ErrSetup) {
			logging.Error("%v", err)
			return errors.New("nothing was run")
		}
		return err
	}

	logging.DebugLog("Run %s finished in %v: %d results, %d regressions, interrupted=%v",
		summary.Run.ID, time.Since(startTime), len(summary.Tuples), len(summary.Regressions), summary.Interrupted)
	return nil
}

// openHistory opens the history database with retry logic. History is
// optional: on failure the run continues without it.
func openHistory(cfg *config.Config) *sql.DB {
	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logging.Warn("Cannot create history directory: %v", err)
		return nil
	}

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err := database.InitDatabase(dbPath)
		if err == nil {
			return db
		}

		if i < maxRetries-1 {
			logging.Warn("Error initializing database (attempt %d/%d): %v - retrying...",
				i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		} else {
			logging.Warn("Error initializing database after %d attempts: %v, history disabled", maxRetries, err)
		}
	}
	return nil
}

func showHistory(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	dbPath := cfg.DatabasePath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database does not exist: %s. Run raycheck first", dbPath)
	}

	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if f.historyTest != "" {
		records, err := database.TestHistory(db, f.historyTest, f.historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintf(out, "No results recorded for %s.\n", f.historyTest)
			return nil
		}
		fmt.Fprintf(out, "History of %s:\n", f.historyTest)
		for _, r := range records {
			status := ""
			if r.Failed {
				status = "  (no image)"
			}
			fmt.Fprintf(out, "%s  %s  ssim %.6f  rmsd %.6f%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.RunID[:8], r.SSIM, r.RMSD, status)
		}
		return nil
	}

	runs, err := database.ListRuns(db, f.historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		status := ""
		if r.Interrupted {
			status = "  interrupted"
		}
		fmt.Fprintf(out, "%s  %s  tests %d  failed %d  regressions %d%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ID[:8], r.Total, r.Failed, r.Regressions, status)
	}

	stats, err := database.GetRunStats(db)
	if err == nil && stats != nil {
		fmt.Fprintf(out, "\nSummary:\n")
		fmt.Fprintf(out, "- Total runs: %d\n", stats.TotalRuns)
		fmt.Fprintf(out, "- Total results: %d\n", stats.TotalResults)
		fmt.Fprintf(out, "- Distinct tests: %d\n", stats.UniqueTests)
	}
	return nil
}

func promoteReport(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	reportPath := f.promoteFrom
	if reportPath == "" {
		reportPath = filepath.Join(cfg.Out, scanner.ReportName)
	}
	in, err := os.Open(reportPath)
	if err != nil {
		return fmt.Errorf("cannot open report: %w", err)
	}
	defer in.Close()

	if !f.promoteWrite {
		_, err := report.PromoteLines(in, cmd.OutOrStdout())
		return err
	}

	out, err := os.OpenFile(cfg.RegressionCutoffs, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open cutoffs file: %w", err)
	}
	n, err := report.PromoteLines(in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	logging.Info("Appended %d cutoffs to %s", n, cfg.RegressionCutoffs)
	return nil
}
