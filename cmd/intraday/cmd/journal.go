package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/report"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect runs recorded in the SQLite journal",
	Long: `Query the SQLite journal written by "intraday backtest --journal sqlite".

Subcommands:
  runs   - List recent runs
  show   - Print one run's summary (optionally as Org-mode)
  trades - Print one run's trade ledger

Examples:
  intraday journal runs --db runs.db
  intraday journal show 01HV3K... --org`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs",
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Print a run's summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades RUN_ID",
	Short: "Print a run's trade ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var (
	jDBPath string
	jLimit  int
	jOrg    bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalTradesCmd)

	journalCmd.PersistentFlags().StringVar(&jDBPath, "db", "", "SQLite journal path (default journal.db_path)")
	journalRunsCmd.Flags().IntVarP(&jLimit, "limit", "n", 20, "number of runs to list (0 = all)")
	journalShowCmd.Flags().BoolVar(&jOrg, "org", false, "print the run as an Org-mode entry")
}

func openJournal() (*journal.SQLite, error) {
	path := jDBPath
	if path == "" {
		path = appCfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database: set --db or journal.db_path")
	}
	return journal.NewSQLite(path)
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), jLimit)
	if err != nil {
		return err
	}
	return report.PrintRuns(cmd.OutOrStdout(), runs)
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if !jOrg {
		rec, err := j.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		report.PrintSummary(cmd.OutOrStdout(), rec)
		return nil
	}

	rec, err := j.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	s, err := journal.FormatRunOrg(rec)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), s)
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if _, err := j.GetRun(cmd.Context(), args[0]); err != nil {
		return err
	}
	events, err := j.ListTradeEvents(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return report.PrintTrades(cmd.OutOrStdout(), events)
}
