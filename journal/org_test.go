package journal

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRunOrg(t *testing.T) {
	t.Parallel()

	rec := sampleRun(t, "01HRUN")
	out, err := FormatRunOrg(rec)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "* BACKTEST: RSI intraday IF\n"))
	assert.Contains(t, out, ":RUN_ID:      01HRUN")
	assert.Contains(t, out, ":DATASET:     testdata/IF.csv")
	assert.Contains(t, out, ":START_DATE:  2024-03-04")
	assert.Contains(t, out, ":END_DATE:    2024-03-05")
	assert.Contains(t, out, ":START_BAL:   1000000.00")
	assert.Contains(t, out, ":TRADES:      4")
	assert.Contains(t, out, ":CREATED:     [2024-03-06 Wed 09:00]")
	assert.Contains(t, out, "| Stop loss %          | 1.00 |")
	assert.Contains(t, out, "| RSI window           | 14 |")

	assert.Contains(t, out, "** Ledger")
	assert.Contains(t, out, "| 2024-03-04 09:05 | BUY | 100.0000 | LONG | LONG | 80.0000 |  |  |")
	assert.Contains(t, out, "| END_TODAY |")
	assert.Contains(t, out, "| 1010000.00 |")
}

func TestFormatRunOrgUndefinedRatios(t *testing.T) {
	t.Parallel()

	rec := sampleRun(t, "")
	rec.Summary.Sharpe = math.NaN()
	rec.Summary.ProfitFactor = math.NaN()
	rec.Events = nil

	out, err := FormatRunOrg(rec)
	require.NoError(t, err)
	assert.Contains(t, out, ":RUN_ID:      (run-id?)")
	assert.Contains(t, out, ":SHARPE:      n/a")
	assert.Contains(t, out, "- Profit Factor:    *n/a*")
	assert.NotContains(t, out, "** Ledger")
}

func TestWriteRunOrg(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, WriteRunOrg(path, sampleRun(t, "X")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ":RUN_ID:      X")
}
