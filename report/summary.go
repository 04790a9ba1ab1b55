package report

import (
	"database/sql"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/journal"
)

func money(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(x).StringFixed(2)
}

func ratio(x float64, prec int) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, x)
}

func opt(v sql.NullFloat64, prec int) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v.Float64)
}

// PrintSummary writes a human readable report of one run.
func PrintSummary(w io.Writer, rec journal.RunRecord) {
	s, c := rec.Summary, rec.Config

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if rec.RunID != "" {
		fmt.Fprintf(w, "Run ID:        %s\n", rec.RunID)
	}
	if !rec.Created.IsZero() {
		fmt.Fprintf(w, "Created:       %s\n", rec.Created.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Symbol:        %s\n", rec.Symbol)
	fmt.Fprintf(w, "Dataset:       %s\n", rec.Dataset)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", rec.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", rec.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Bars:          %d\n", s.Bars)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Strategy Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "RSI Window:    %d\n", c.RSIWindow)
	fmt.Fprintf(w, "Long / Short:  %.2f / %.2f\n", c.RSILong, c.RSIShort)
	fmt.Fprintf(w, "Stop Loss:     %.2f%%\n", c.StopLossPct*100)
	fmt.Fprintf(w, "Daily Caps:    %d entries, %d exits\n", c.MaxEntriesPerDay, c.MaxExitsPerDay)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Events:        %d\n", s.NumTrades)
	fmt.Fprintf(w, "Entries:       %d\n", s.Entries)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRate*100)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", money(s.InitialCap))
	fmt.Fprintf(w, "End Balance:   %s\n", money(s.FinalEquity))
	fmt.Fprintf(w, "Net P/L:       %s\n", money(s.CumPnL))
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "Sharpe:        %s\n", ratio(s.Sharpe, 3))
	fmt.Fprintf(w, "Profit Factor: %s\n", ratio(s.ProfitFactor, 2))

	fmt.Fprintln(w)
}

// PrintTrades writes the ledger as an aligned table.
func PrintTrades(w io.Writer, events []backtest.TradeEvent) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tACTION\tPRICE\tPOS\tREASON\tRSI\tLOG_RET\tCASH_AFTER")
	for _, ev := range events {
		cash := "-"
		if ev.CashAfter.Valid {
			cash = money(ev.CashAfter.Float64)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%s\t%s\t%s\t%s\t%s\n",
			ev.Seq, ev.Time.Format("2006-01-02 15:04"), ev.Action, ev.Price, ev.PosAfter,
			ev.Reason, opt(ev.Signal, 2), opt(ev.LogReturn, 6), cash)
	}
	return tw.Flush()
}

// PrintRuns writes one line per journaled run.
func PrintRuns(w io.Writer, runs []journal.RunRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN_ID\tCREATED\tSYMBOL\tFINAL\tMDD%\tSHARPE\tEVENTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\t%d\n",
			r.RunID, r.Created.Format("2006-01-02 15:04"), r.Symbol, money(r.Summary.FinalEquity),
			r.Summary.MaxDrawdown*100, ratio(r.Summary.Sharpe, 3), r.Summary.NumTrades)
	}
	return tw.Flush()
}

// PrintSweep writes ranked sweep results. top <= 0 prints all.
func PrintSweep(w io.Writer, results []backtest.SweepResult, top int) error {
	if top <= 0 || top > len(results) {
		top = len(results)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tWINDOW\tLONG\tSHORT\tSTOP%\tFINAL\tMDD%\tSHARPE\tWIN%\tEVENTS")
	for i, r := range results[:top] {
		c, s := r.Config, r.Summary
		fmt.Fprintf(tw, "%d\t%d\t%.1f\t%.1f\t%.2f\t%s\t%.2f\t%s\t%.1f\t%d\n",
			i+1, c.RSIWindow, c.RSILong, c.RSIShort, c.StopLossPct*100, money(s.FinalEquity),
			s.MaxDrawdown*100, ratio(s.Sharpe, 3), s.WinRate*100, s.NumTrades)
	}
	return tw.Flush()
}
