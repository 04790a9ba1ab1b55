package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/report"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter grid in parallel and rank the results",
	Long: `Sweep runs one independent backtest per combination of the grid in the
config's sweep section (or the flags below) and prints them ranked by
Sharpe ratio, then final equity. Combinations with rsi_long <= rsi_short
are skipped.

Example:
  intraday sweep --data data/IF_5m.csv --long 60,65,70 --short 30,35,40 --stops 0.005,0.01 --workers 8`,
	RunE: runSweep,
}

var (
	swLongs   []float64
	swShorts  []float64
	swStops   []float64
	swWindows []int
	swWorkers int
	swTop     int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	addDataFlags(sweepCmd.Flags())
	addStrategyFlags(sweepCmd.Flags())

	sweepCmd.Flags().Float64SliceVar(&swLongs, "long", nil, "rsi_long values")
	sweepCmd.Flags().Float64SliceVar(&swShorts, "short", nil, "rsi_short values")
	sweepCmd.Flags().Float64SliceVar(&swStops, "stops", nil, "stop_loss_pct values")
	sweepCmd.Flags().IntSliceVar(&swWindows, "windows", nil, "rsi_window values")
	sweepCmd.Flags().IntVarP(&swWorkers, "workers", "w", 0, "parallel runs (default GOMAXPROCS)")
	sweepCmd.Flags().IntVar(&swTop, "top", 0, "print only the best N results")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	fs := cmd.Flags()
	if fs.Changed("long") {
		cfg.Sweep.Grid.RSILong = swLongs
	}
	if fs.Changed("short") {
		cfg.Sweep.Grid.RSIShort = swShorts
	}
	if fs.Changed("stops") {
		cfg.Sweep.Grid.StopLossPct = swStops
	}
	if fs.Changed("windows") {
		cfg.Sweep.Grid.RSIWindow = swWindows
	}
	if fs.Changed("workers") {
		cfg.Sweep.Workers = swWorkers
	}
	if fs.Changed("top") {
		cfg.Sweep.Top = swTop
	}
	if err := applyFlags(fs, cfg); err != nil {
		return err
	}

	configs := cfg.Sweep.Grid.Expand(cfg.Strategy)
	if len(configs) == 0 {
		return fmt.Errorf("sweep: grid has no valid combination")
	}

	// A precomputed column is shared by every run; otherwise each run
	// gets the RSI of its own window.
	bars, signals, err := loadBars(cfg)
	if err != nil {
		return err
	}
	opts := backtest.SweepOptions{
		Workers: cfg.Sweep.Workers,
		Signals: signals,
		Logger:  logger,
	}

	started := time.Now()
	results, err := backtest.Sweep(cmd.Context(), bars, configs, opts)
	if err != nil {
		return err
	}
	backtest.Rank(results)

	logger.Info("sweep done",
		zap.Int("runs", len(results)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return report.PrintSweep(cmd.OutOrStdout(), results, cfg.Sweep.Top)
}
