package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/config"
	"github.com/rustyeddy/intraday/indicators"
	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/pkg/id"
	"github.com/rustyeddy/intraday/report"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the RSI intraday strategy over a bar file",
	Long: `Backtest loads OHLC bars from a CSV file, computes the RSI (or reads a
precomputed column), runs the strategy and prints the summary.

Every flag overrides the matching key of the config file.

Example:
  intraday backtest --data data/IF_5m.csv --prefix KQ.m@CFFEX.IF --rsi-long 70 --rsi-short 40
  intraday backtest -c intraday.yaml --journal sqlite --db runs.db --org run.org`,
	RunE: runBacktest,
}

var (
	btTrades      bool
	btRevealClose bool
	btJournalType string
	btDBPath      string
	btOrgPath     string
	btChartPath   string
	btTradesFile  string
	btBarsFile    string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	addDataFlags(backtestCmd.Flags())
	addStrategyFlags(backtestCmd.Flags())

	backtestCmd.Flags().BoolVar(&btTrades, "trades", false, "print the trade ledger")
	backtestCmd.Flags().BoolVar(&btRevealClose, "reveal-close", false, "include end-of-day CLOSE markers in the chart")
	backtestCmd.Flags().StringVar(&btJournalType, "journal", "", "journal type: none, csv, sqlite")
	backtestCmd.Flags().StringVar(&btDBPath, "db", "", "SQLite journal path")
	backtestCmd.Flags().StringVar(&btTradesFile, "trades-file", "", "CSV journal ledger path")
	backtestCmd.Flags().StringVar(&btBarsFile, "bars-file", "", "CSV journal bar table path")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode report to this path")
	backtestCmd.Flags().StringVar(&btChartPath, "chart", "", "write the chart dataset JSON to this path")
}

var (
	dataPath      string
	dataPrefix    string
	dataSignalCol string
	dataTimezone  string

	stInitialCap float64
	stStopLoss   float64
	stRSILong    float64
	stRSIShort   float64
	stMaxEntries int
	stMaxExits   int
	stRSIWindow  int
	stRSIWarmup  int
	stRequireCur bool
)

func addDataFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&dataPath, "data", "d", "", "bar CSV path")
	fs.StringVar(&dataPrefix, "prefix", "", "instrument prefix of OHLC headers, e.g. KQ.m@SHFE.rb")
	fs.StringVar(&dataSignalCol, "signal-column", "", "use a precomputed oscillator column instead of computing the RSI")
	fs.StringVar(&dataTimezone, "tz", "", "timezone of naive timestamps and trading days (default UTC)")
}

func addStrategyFlags(fs *pflag.FlagSet) {
	d := backtest.DefaultConfig()
	fs.Float64Var(&stInitialCap, "initial-cap", d.InitialCap, "starting cash")
	fs.Float64Var(&stStopLoss, "stop", d.StopLossPct, "stop loss as a fraction of the entry price")
	fs.Float64Var(&stRSILong, "rsi-long", d.RSILong, "go long when the previous RSI is at or above this")
	fs.Float64Var(&stRSIShort, "rsi-short", d.RSIShort, "go short when the previous RSI is at or below this")
	fs.IntVar(&stMaxEntries, "max-entries", d.MaxEntriesPerDay, "entries allowed per day")
	fs.IntVar(&stMaxExits, "max-exits", d.MaxExitsPerDay, "stop-loss exits allowed per day")
	fs.IntVar(&stRSIWindow, "rsi-window", d.RSIWindow, "RSI smoothing window")
	fs.IntVar(&stRSIWarmup, "rsi-warmup", d.RSIWarmup, "price changes before the first RSI reading (0 = window)")
	fs.BoolVar(&stRequireCur, "require-current", d.RequireCurrentSignal, "also require the current bar's RSI before entering")
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("data", func() { cfg.Data.Path = dataPath })
	set("prefix", func() { cfg.Data.SymbolPrefix = dataPrefix })
	set("signal-column", func() { cfg.Data.SignalColumn = dataSignalCol })
	set("tz", func() { cfg.Data.Timezone = dataTimezone })

	set("initial-cap", func() { cfg.Strategy.InitialCap = stInitialCap })
	set("stop", func() { cfg.Strategy.StopLossPct = stStopLoss })
	set("rsi-long", func() { cfg.Strategy.RSILong = stRSILong })
	set("rsi-short", func() { cfg.Strategy.RSIShort = stRSIShort })
	set("max-entries", func() { cfg.Strategy.MaxEntriesPerDay = stMaxEntries })
	set("max-exits", func() { cfg.Strategy.MaxExitsPerDay = stMaxExits })
	set("rsi-window", func() { cfg.Strategy.RSIWindow = stRSIWindow })
	set("rsi-warmup", func() { cfg.Strategy.RSIWarmup = stRSIWarmup })
	set("require-current", func() { cfg.Strategy.RequireCurrentSignal = stRequireCur })

	set("journal", func() { cfg.Journal.Type = btJournalType })
	set("db", func() { cfg.Journal.DBPath = btDBPath })
	set("trades-file", func() { cfg.Journal.TradesFile = btTradesFile })
	set("bars-file", func() { cfg.Journal.BarsFile = btBarsFile })
	set("org", func() { cfg.Journal.OrgPath = btOrgPath })
	set("chart", func() { cfg.Journal.ChartPath = btChartPath })

	return cfg.Validate()
}

// loadBars reads the bar file. The second result holds the precomputed
// oscillator column, nil when none is configured.
func loadBars(cfg *config.Config) (*market.BarSet, []indicators.Sample, error) {
	opts, err := cfg.LoadOptions()
	if err != nil {
		return nil, nil, err
	}
	loaded, err := market.LoadCSV(cfg.Data.Path, opts)
	if err != nil {
		return nil, nil, err
	}
	bars := loaded.Bars
	bars.Symbol = cfg.Symbol()

	logger.Info("bars loaded",
		zap.String("path", cfg.Data.Path),
		zap.Int("bars", bars.Len()),
		zap.Int("days", bars.Days()),
		zap.Time("start", bars.Start()),
		zap.Time("end", bars.End()),
	)

	if loaded.Signal == nil {
		return bars, nil, nil
	}
	return bars, indicators.FromFloats(loaded.Signal), nil
}

// loadInputs is loadBars plus the RSI when no column was precomputed.
func loadInputs(cfg *config.Config) (*market.BarSet, []indicators.Sample, error) {
	bars, signals, err := loadBars(cfg)
	if err != nil || signals != nil {
		return bars, signals, err
	}
	signals, err = backtest.RSIFor(bars, cfg.Strategy)
	if err != nil {
		return nil, nil, err
	}
	return bars, signals, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	bars, signals, err := loadInputs(cfg)
	if err != nil {
		return err
	}

	e, err := backtest.NewEngine(bars, signals, cfg.Strategy)
	if err != nil {
		return err
	}

	runID := id.New()
	started := time.Now()
	if err := e.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	rec, err := journal.NewRunRecord(runID, time.Now().UTC(), e)
	if err != nil {
		return err
	}
	logger.Info("backtest done",
		zap.String("run_id", runID),
		zap.Int("trades", len(rec.Events)),
		zap.Float64("final_equity", rec.Summary.FinalEquity),
		zap.Duration("elapsed", time.Since(started)),
	)

	out := cmd.OutOrStdout()
	report.PrintSummary(out, rec)
	if btTrades {
		if err := report.PrintTrades(out, rec.Events); err != nil {
			return err
		}
	}

	return saveRun(cmd, cfg, rec)
}

func saveRun(cmd *cobra.Command, cfg *config.Config, rec journal.RunRecord) error {
	j, err := journal.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	if err := j.RecordRun(cmd.Context(), rec); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if cfg.Journal.Type != "none" {
		logger.Info("run journaled", zap.String("run_id", rec.RunID), zap.String("journal", cfg.Journal.Type))
	}

	if p := cfg.Journal.OrgPath; p != "" {
		if err := journal.WriteRunOrg(p, rec); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Org Report:    %s\n", p)
	}

	if p := cfg.Journal.ChartPath; p != "" {
		ch := report.BuildChart(rec.Symbol, rec.Rows, rec.Events, rec.Config, rec.Summary, btRevealClose)
		data, err := json.MarshalIndent(ch, "", "  ")
		if err != nil {
			return fmt.Errorf("chart: %w", err)
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return fmt.Errorf("chart: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chart Data:    %s\n", p)
	}
	return nil
}
