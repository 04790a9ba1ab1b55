// Package indicators provides technical analysis indicators for trading
package indicators

import "github.com/rustyeddy/intraday/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in replays and backtests.
type Indicator interface {
	// Name returns a stable identifier like "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether the warmup has completed.
	Ready() bool

	// Sample returns the current value, or an unavailable Sample.
	Sample() Sample
}

// Series feeds every bar of bs to ind, starting from a clean state, and
// returns one sample per bar.
func Series(ind Indicator, bs *market.BarSet) []Sample {
	ind.Reset()
	out := make([]Sample, 0, bs.Len())
	it := bs.Iterator()
	for it.Next() {
		ind.Update(it.Bar())
		out = append(out, ind.Sample())
	}
	return out
}
