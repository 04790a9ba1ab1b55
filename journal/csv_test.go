package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/config"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	barsPath := filepath.Join(dir, "bars.csv")

	j, err := NewCSV(tradesPath, barsPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{TradeColumns}, readCSV(t, tradesPath))
	assert.Equal(t, [][]string{BarColumns}, readCSV(t, barsPath))
}

func TestCSVJournalRecordRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	barsPath := filepath.Join(dir, "bars.csv")

	j, err := NewCSV(tradesPath, barsPath)
	require.NoError(t, err)

	rec := sampleRun(t, "RUN1")
	require.NoError(t, j.RecordRun(context.Background(), rec))
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 1+len(rec.Events))

	buy := trades[1]
	assert.Equal(t, "RUN1", buy[0])
	assert.Equal(t, "2024-03-04T09:05:00Z", buy[1])
	assert.Equal(t, "BUY", buy[2])
	assert.Equal(t, "100", buy[3])
	assert.Equal(t, "1", buy[4])
	assert.Equal(t, "1", buy[5])
	assert.Equal(t, "LONG", buy[6])
	assert.Equal(t, "80", buy[7])
	assert.Equal(t, "", buy[8], "entries realize nothing")
	assert.Equal(t, "", buy[10])

	closeRow := trades[2]
	assert.Equal(t, "CLOSE", closeRow[2])
	assert.Equal(t, "0", closeRow[5])
	assert.Equal(t, "END_TODAY", closeRow[6])
	assert.Equal(t, "10000.00", closeRow[9])
	assert.Equal(t, "1010000.00", closeRow[10])

	stop := trades[4]
	assert.Equal(t, "BUY", stop[2])
	assert.Equal(t, "stop_short_loss", stop[6])

	bars := readCSV(t, barsPath)
	require.Len(t, bars, 1+len(rec.Rows))
	assert.Equal(t, "80", bars[1][7])
	assert.Equal(t, "1000000.00", bars[1][8])
	assert.Equal(t, "0.00", bars[1][9])
	assert.Equal(t, "0", bars[1][10])
	assert.Equal(t, "20000.00", bars[2][9])
}

func TestOpenJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	j, err := Open(configFor("none", dir))
	require.NoError(t, err)
	assert.NoError(t, j.RecordRun(context.Background(), RunRecord{}))
	assert.NoError(t, j.Close())

	j, err = Open(configFor("sqlite", dir))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, j)
	assert.NoError(t, j.Close())

	j, err = Open(configFor("csv", dir))
	require.NoError(t, err)
	assert.IsType(t, &CSV{}, j)
	assert.NoError(t, j.Close())

	_, err = Open(configFor("mongo", dir))
	assert.Error(t, err)
}

func configFor(typ, dir string) config.JournalConfig {
	return config.JournalConfig{
		Type:       typ,
		DBPath:     filepath.Join(dir, "runs.db"),
		TradesFile: filepath.Join(dir, "trades.csv"),
		BarsFile:   filepath.Join(dir, "bars.csv"),
	}
}

func TestNewCSVErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "trades.csv"), filepath.Join(dir, "missing", "bars.csv"))
	assert.Error(t, err)

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full on this system")
	}
	bars := filepath.Join(dir, "bars.csv")
	_, err = NewCSV("/dev/full", bars)
	require.Error(t, err)
	assert.ErrorContains(t, err, "write csv headers")

	// the sink let go of the bar file, so it can be reopened for a new journal
	j, err := NewCSV(filepath.Join(dir, "trades2.csv"), bars)
	require.NoError(t, err)
	require.NoError(t, j.Close())
}
