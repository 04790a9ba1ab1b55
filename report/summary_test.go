package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/journal"
)

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	rec := sampleRun(t, "01HRUN")
	var buf bytes.Buffer
	PrintSummary(&buf, rec)
	out := buf.String()

	assert.Contains(t, out, "Run ID:        01HRUN")
	assert.Contains(t, out, "Symbol:        IF")
	assert.Contains(t, out, "Start Balance: 1000000.00")
	assert.Contains(t, out, "Long / Short:  70.00 / 40.00")
	assert.Contains(t, out, "Stop Loss:     1.00%")
	assert.Contains(t, out, "Events:        4")
	assert.Contains(t, out, "Wins:          1")
}

func TestPrintSummaryUndefinedRatios(t *testing.T) {
	t.Parallel()

	rec := journal.RunRecord{
		Config:  backtest.DefaultConfig(),
		Summary: backtest.Summary{InitialCap: 100, FinalEquity: 100, Sharpe: math.NaN(), ProfitFactor: math.NaN()},
	}
	var buf bytes.Buffer
	PrintSummary(&buf, rec)

	assert.Contains(t, buf.String(), "Sharpe:        n/a")
	assert.Contains(t, buf.String(), "Profit Factor: n/a")
	assert.NotContains(t, buf.String(), "Run ID:")
}

func TestPrintTrades(t *testing.T) {
	t.Parallel()

	rec := sampleRun(t, "R")
	var buf bytes.Buffer
	require.NoError(t, PrintTrades(&buf, rec.Events))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "SEQ"))
	assert.Contains(t, lines[1], "BUY")
	assert.Contains(t, lines[1], "LONG")
	assert.Contains(t, lines[2], "END_TODAY")
	assert.Contains(t, lines[2], "1010000.00")
	assert.Contains(t, lines[4], "stop_short_loss")
}

func TestPrintSweep(t *testing.T) {
	t.Parallel()

	results := []backtest.SweepResult{
		{Config: backtest.DefaultConfig(), Summary: backtest.Summary{FinalEquity: 1_050_000, Sharpe: 1.5}},
		{Config: backtest.DefaultConfig(), Summary: backtest.Summary{FinalEquity: 990_000, Sharpe: math.NaN()}},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintSweep(&buf, results, 1))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "1050000.00")

	buf.Reset()
	require.NoError(t, PrintSweep(&buf, results, 0))
	assert.Contains(t, buf.String(), "n/a")
}

func TestPrintRuns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, PrintRuns(&buf, []journal.RunRecord{sampleRun(t, "01HRUN")}))
	assert.Contains(t, buf.String(), "01HRUN")
	assert.Contains(t, buf.String(), "2024-03-06 09:00")
}
