package backtest

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/intraday/indicators"
	"github.com/rustyeddy/intraday/market"
	"github.com/stretchr/testify/require"
)

// testContext stands in for testing.T.Context (Go 1.24+): a context that is
// canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

type ohlc struct{ o, h, l, c float64 }

var day0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// newDays builds 5 minute bars; each inner slice is one trading day.
func newDays(t *testing.T, days ...[]ohlc) *market.BarSet {
	t.Helper()

	var bars []market.Bar
	for d, day := range days {
		start := day0.AddDate(0, 0, d)
		for i, p := range day {
			bars = append(bars, market.Bar{
				Time:  start.Add(time.Duration(i) * 5 * time.Minute),
				Open:  p.o,
				High:  p.h,
				Low:   p.l,
				Close: p.c,
			})
		}
	}
	bs, err := market.NewBarSet("TEST", bars)
	require.NoError(t, err)
	return bs
}

// sig builds a signal series; NaN means unavailable.
func sig(vs ...float64) []indicators.Sample {
	return indicators.FromFloats(vs)
}

func flat(px float64) ohlc {
	return ohlc{px, px * 1.001, px * 0.999, px}
}

func runEngine(t *testing.T, bs *market.BarSet, signals []indicators.Sample, cfg Config) *Engine {
	t.Helper()

	e, err := NewEngine(bs, signals, cfg)
	require.NoError(t, err)
	require.NoError(t, e.Run(testContext(t)))
	return e
}

// randomWalk builds deterministic intraday bars over several days.
func randomWalk(t *testing.T, days, perDay int, seed int64) *market.BarSet {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	px := 3800.0
	var all [][]ohlc
	for d := 0; d < days; d++ {
		var day []ohlc
		for i := 0; i < perDay; i++ {
			o := px
			c := o * math.Exp(rng.NormFloat64()*0.004)
			h := math.Max(o, c) * (1 + rng.Float64()*0.006)
			l := math.Min(o, c) * (1 - rng.Float64()*0.006)
			day = append(day, ohlc{o, h, l, c})
			px = c
		}
		all = append(all, day)
	}
	return newDays(t, all...)
}
