package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/config"
	"github.com/rustyeddy/intraday/logging"
)

var rootCmd = &cobra.Command{
	Use:   "intraday",
	Short: "Intraday RSI strategy backtester",
	Long: `Intraday backtests a single-instrument RSI strategy over OHLC bars.

It provides tools for:
  - Running a backtest from a bar CSV and printing its ledger and summary
  - Sweeping strategy parameters in parallel and ranking the results
  - Journaling runs to SQLite or CSV and exporting Org-mode reports
  - Serving journaled runs as chartable JSON over HTTP`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	cfgFile  string
	logLevel string

	appCfg *config.Config
	logger = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when omitted")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	l, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	appCfg = cfg
	logger = l
	logger.Debug("config loaded", zap.String("file", cfgFile), zap.String("journal", cfg.Journal.Type))
	return nil
}
