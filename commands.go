package main

import (
	"github.com/spf13/cobra"

	"raycheck/config"
)

// flags holds raw flag values; only flags set on the command line override
// the configuration file
type flags struct {
	configPath   string
	exec         string
	refbin       string
	scenes       string
	out          string
	refcache     string
	json         string
	cubemap      string
	timeLimit    int
	refTimeLimit int
	noCompare    bool
	cutoffs      string
	suppressMemo bool
	jobs         int
	windowSize   int
	database     string
	noHistory    bool
	debug        bool
	logFile      string
	progress     bool

	historyTest  string
	historyLimit int
	promoteWrite bool
	promoteFrom  string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	defaults := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "raycheck",
		Short: "Compares your raytracer against the reference raytracer",
		Long: `raycheck renders every scene with your raytracer and the reference raytracer,
compares the images with SSIM and RMSD, writes diff and montage images and a
report, and warns about tests that got worse than their recorded cutoffs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd, f)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML configuration file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&f.out, "out", defaults.Out, "Output directory")
	pf.StringVar(&f.database, "database", "", "Run history database (default <out>/history.db)")
	pf.StringVar(&f.cutoffs, "regression-cutoffs", defaults.RegressionCutoffs,
		"Tab-separated file of test-name, ssim, rmsd cutoffs used to detect regressions")
	pf.BoolVar(&f.debug, "debug", false, "Write a debug log")
	pf.StringVar(&f.logFile, "logfile", defaults.LogFile, "Debug log file")

	fl := rootCmd.Flags()
	fl.StringVar(&f.exec, "exec", defaults.Exec, "Executable file for your ray tracer")
	fl.StringVar(&f.refbin, "refbin", defaults.RefBin, "Executable file for the reference ray tracer")
	fl.StringVar(&f.scenes, "scenes", defaults.Scenes, "Directory that stores scene JSON files")
	fl.StringVar(&f.refcache, "refcache", "", "Directory of images created by the reference ray tracer (default <out>/refcache)")
	fl.StringVar(&f.json, "json", "", "JSON configuration file for testing")
	fl.StringVar(&f.cubemap, "cubemap", "", "One texture file for cubemapping")
	fl.IntVar(&f.timeLimit, "timelimit", defaults.TimeLimit,
		"Time limit in seconds. Files that time out are reported as having maximum error")
	fl.IntVar(&f.refTimeLimit, "reference-timelimit", 0, "Time limit in seconds for the reference ray tracer (default same as --timelimit)")
	fl.BoolVar(&f.noCompare, "nocompare", false, "Only render the image, do not compare")
	fl.BoolVar(&f.suppressMemo, "i-understand-that-image-metrics-are-not-perfect", false,
		"Suppress the explanation at the top of the report")
	fl.IntVar(&f.jobs, "jobs", defaults.Jobs, "Number of tests run in parallel, 0 picks one from the CPU count")
	fl.IntVar(&f.windowSize, "window-size", defaults.WindowSize, "Side length of the SSIM window (odd)")
	fl.BoolVar(&f.noHistory, "no-history", false, "Do not record this run in the history database")
	fl.BoolVar(&f.progress, "progress", false, "Show a progress line on terminals")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs or the trend of one test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(cmd, f)
		},
	}
	historyCmd.Flags().StringVar(&f.historyTest, "test", "", "Show the results of one test across runs")
	historyCmd.Flags().IntVar(&f.historyLimit, "limit", 10, "Number of entries to show, 0 for all")

	promoteCmd := &cobra.Command{
		Use:   "promote",
		Short: "Convert report lines into cutoff lines",
		Long: `promote reads a report and prints every result as a cutoff line. With --write
the lines are appended to the regression cutoffs file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return promoteReport(cmd, f)
		},
	}
	promoteCmd.Flags().StringVar(&f.promoteFrom, "report", "", "Report to read (default <out>/report.csv)")
	promoteCmd.Flags().BoolVar(&f.promoteWrite, "write", false, "Append to the regression cutoffs file")

	rootCmd.AddCommand(historyCmd, promoteCmd)
	return rootCmd
}

// loadConfig reads the configuration file and applies flags given on the
// command line
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("exec") {
		cfg.Exec = f.exec
	}
	if changed("refbin") {
		cfg.RefBin = f.refbin
	}
	if changed("scenes") {
		cfg.Scenes = f.scenes
	}
	if changed("out") {
		cfg.Out = f.out
	}
	if changed("refcache") {
		cfg.RefCache = f.refcache
	}
	if changed("json") {
		cfg.JSON = f.json
	}
	if changed("cubemap") {
		cfg.Cubemap = f.cubemap
	}
	if changed("timelimit") {
		cfg.TimeLimit = f.timeLimit
	}
	if changed("reference-timelimit") {
		cfg.ReferenceTimeLimit = f.refTimeLimit
	}
	if changed("nocompare") {
		cfg.NoCompare = f.noCompare
	}
	if changed("regression-cutoffs") {
		cfg.RegressionCutoffs = f.cutoffs
	}
	if changed("i-understand-that-image-metrics-are-not-perfect") {
		cfg.SuppressMemo = f.suppressMemo
	}
	if changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if changed("window-size") {
		cfg.WindowSize = f.windowSize
	}
	if changed("database") {
		cfg.Database = f.database
	}
	if changed("no-history") {
		cfg.History = !f.noHistory
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	if changed("logfile") {
		cfg.LogFile = f.logFile
	}
	if changed("progress") {
		cfg.Progress = f.progress
	}
	return cfg, nil
}
