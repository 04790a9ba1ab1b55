package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/indicators"
	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/market"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// sampleRun: long from bar 1 closed at the end of day one, short on day
// two stopped out on the last bar.
func sampleRun(t *testing.T, runID string) journal.RunRecord {
	t.Helper()

	px := [][4]float64{
		{100, 100.1, 99.9, 100},
		{100, 103, 99.5, 102},
		{102, 102.5, 101, 101},
		{101, 101.2, 100.8, 101},
		{101, 103, 100.5, 102.5},
		{102.5, 102.6, 101.9, 102},
	}
	var bars []market.Bar
	for i, p := range px {
		ts := t0.Add(time.Duration(i) * 5 * time.Minute)
		if i >= 3 {
			ts = t0.AddDate(0, 0, 1).Add(time.Duration(i-3) * 5 * time.Minute)
		}
		bars = append(bars, market.Bar{Time: ts, Open: p[0], High: p[1], Low: p[2], Close: p[3]})
	}
	bs, err := market.NewBarSet("IF", bars)
	require.NoError(t, err)

	signals := indicators.FromFloats([]float64{80, 55, 50, 30, 55, 50})
	e, err := backtest.NewEngine(bs, signals, backtest.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))

	rec, err := journal.NewRunRecord(runID, t0.Add(48*time.Hour), e)
	require.NoError(t, err)
	return rec
}
