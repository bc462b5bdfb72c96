package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/stride/internal/calc"
	"github.com/cwbudde/stride/internal/config"
	"github.com/cwbudde/stride/internal/observers"
	"github.com/cwbudde/stride/internal/runner"
	"github.com/cwbudde/stride/internal/store"
)

var (
	configPath   string
	calcName     string
	maxIters     uint64
	targetCost   float64
	timeBudget   time.Duration
	window       int
	logEvery     uint64
	traceRun     bool
	plotPath     string
	runDataDir   string
	seed         int64
	dimensions   int
	learningRate float64
	tau          float64
	tolerance    float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a calculation to completion",
	Long: `Runs the named calculation under the harness until a termination
condition fires: convergence, target cost, iteration cap, time budget,
step failure, or Ctrl+C. The result is stored under the data directory.`,
	RunE: runCalculation,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration file")
	runCmd.Flags().StringVar(&calcName, "calc", "decay", "Calculation to run (decay, sphere)")
	runCmd.Flags().Uint64Var(&maxIters, "max-iters", 1000, "Max iterations (0 = unlimited)")
	runCmd.Flags().Float64Var(&targetCost, "target-cost", 0, "Stop once cost drops to this value")
	runCmd.Flags().DurationVar(&timeBudget, "time-budget", 0, "Wall-clock budget (0 = unlimited)")
	runCmd.Flags().IntVar(&window, "window", 0, "Keep only the most recent N measurements (0 = all)")
	runCmd.Flags().Uint64Var(&logEvery, "log-every", 100, "Log progress every N iterations (0 = off)")
	runCmd.Flags().BoolVar(&traceRun, "trace", false, "Write a JSONL iteration trace")
	runCmd.Flags().StringVar(&plotPath, "plot", "", "Write a CSV progress curve to this path")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "data", "Base directory for results")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	runCmd.Flags().IntVar(&dimensions, "dim", 8, "Parameter-space dimensions (sphere)")
	runCmd.Flags().Float64Var(&learningRate, "learning-rate", 0.1, "Gradient step size (sphere)")
	runCmd.Flags().Float64Var(&tau, "tau", 100, "Decay time constant (decay)")
	runCmd.Flags().Float64Var(&tolerance, "tol", 1e-9, "Convergence tolerance")

	rootCmd.AddCommand(runCmd)
}

// mergeRunConfig layers explicitly set flags over the config file (or the
// defaults when no file is given).
func mergeRunConfig(cmd *cobra.Command) (config.RunConfig, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("calc") {
		cfg.Calculation = calcName
	}
	if flags.Changed("max-iters") {
		cfg.MaxIterations = maxIters
	}
	if flags.Changed("target-cost") {
		tc := targetCost
		cfg.TargetCost = &tc
	}
	if flags.Changed("time-budget") {
		cfg.TimeBudget = config.Duration(timeBudget)
	}
	if flags.Changed("window") {
		cfg.MeasurementWindow = window
	}
	if flags.Changed("log-every") {
		cfg.LogEvery = logEvery
	}
	if flags.Changed("trace") {
		cfg.Trace = traceRun
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = runDataDir
	}
	if flags.Changed("seed") {
		cfg.Params.Seed = seed
	}
	if flags.Changed("dim") {
		cfg.Params.Dimensions = dimensions
	}
	if flags.Changed("learning-rate") {
		cfg.Params.LearningRate = learningRate
	}
	if flags.Changed("tau") {
		cfg.Params.Tau = tau
	}
	if flags.Changed("tol") {
		cfg.Params.Tolerance = tolerance
	}

	return cfg, cfg.Validate()
}

func runCalculation(cmd *cobra.Command, args []string) error {
	cfg, err := mergeRunConfig(cmd)
	if err != nil {
		return err
	}

	runFn, err := calc.Lookup(cfg.Calculation)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	slog.Info("Starting run", "run_id", runID, "calculation", cfg.Calculation)

	// Ctrl+C trips the cancellation signal; the run ends at the next
	// iteration boundary with a cancelled outcome instead of dying.
	sig := runner.NewSignal()
	stop := runner.NotifyInterrupt(sig, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []runner.Option{runner.WithSignal(sig)}
	if cfg.MaxIterations > 0 {
		opts = append(opts, runner.WithMaxIterations(cfg.MaxIterations))
	}
	if cfg.TargetCost != nil {
		opts = append(opts, runner.WithTargetCost(*cfg.TargetCost))
	}
	if time.Duration(cfg.TimeBudget) > 0 {
		opts = append(opts, runner.WithTimeBudget(time.Duration(cfg.TimeBudget)))
	}
	if cfg.MeasurementWindow > 0 {
		opts = append(opts, runner.WithMeasurementWindow(cfg.MeasurementWindow))
	}

	if cfg.LogEvery > 0 {
		progress, err := observers.NewSlog(slog.Default(), slog.LevelInfo, runID)
		if err != nil {
			return err
		}
		opts = append(opts, runner.WithObserver(progress, runner.Every(cfg.LogEvery)))
	}

	if cfg.Trace {
		tw, err := store.NewTraceWriter(cfg.DataDir, runID, false)
		if err != nil {
			return err
		}
		defer tw.Close()
		opts = append(opts, runner.WithObserver(observers.NewTrace(tw), runner.Always()))
	}

	if plotPath != "" {
		opts = append(opts, runner.WithObserver(observers.NewPlot(plotPath, 0), runner.Always()))
	}

	start := time.Now()
	sum, err := runFn(cmd.Context(), cfg.Params, opts...)
	if err != nil {
		return err
	}

	// Persist the result alongside any trace.
	st, err := store.NewFSStore(cfg.DataDir)
	if err != nil {
		return err
	}
	result := store.NewResult(runID, sum, store.RunSpec{
		Calculation:   cfg.Calculation,
		MaxIterations: cfg.MaxIterations,
		TargetCost:    cfg.TargetCost,
		TimeBudget:    time.Duration(cfg.TimeBudget),
		Seed:          cfg.Params.Seed,
	})
	if err := st.SaveResult(runID, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	slog.Info("Run finished",
		"run_id", runID,
		"reason", sum.Reason,
		"iterations", sum.Iterations,
		"elapsed", time.Since(start),
	)

	fmt.Printf("Run %s finished: %s after %d iterations in %s\n",
		runID, sum.Reason, sum.Iterations, sum.Elapsed.Round(time.Millisecond))
	if sum.HasCost {
		fmt.Printf("  final cost: %g\n", sum.FinalCost)
		fmt.Printf("  best cost:  %g (iteration %d)\n", sum.BestCost, sum.BestIteration)
	}
	if sum.Err != nil {
		fmt.Printf("  error: %v\n", sum.Err)
	}
	fmt.Printf("  result: %s\n", filepath.Join(cfg.DataDir, "runs", runID, "result.json"))

	return nil
}
