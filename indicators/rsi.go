package indicators

import (
	"fmt"

	"github.com/rustyeddy/intraday/market"
)

var _ Indicator = (*RSI)(nil)

// RSI is a streaming Relative Strength Index over bar closes.
//
// Average gain and loss use Wilder smoothing expressed as an exponential
// average with alpha = 1/window, seeded with the first price change.
// A reading is unavailable until warmup price changes have been seen, and
// whenever the average loss is zero (the gain/loss ratio is undefined).
type RSI struct {
	window int
	warmup int
	alpha  float64

	prev     float64
	havePrev bool
	changes  int

	avgGain float64
	avgLoss float64

	name string
}

// NewRSI creates an RSI with the given window. Warmup defaults to window.
func NewRSI(window int) *RSI {
	if window <= 0 {
		panic("RSI window must be > 0")
	}
	return &RSI{
		window: window,
		warmup: window,
		alpha:  1.0 / float64(window),
		name:   fmt.Sprintf("RSI(%d)", window),
	}
}

// WithWarmup overrides the number of price changes required before the
// first reading. n <= 0 keeps the current warmup.
func (r *RSI) WithWarmup(n int) *RSI {
	if n > 0 {
		r.warmup = n
	}
	return r
}

func (r *RSI) Name() string { return r.name }

// Warmup is counted in bars: one bar more than the required price changes.
func (r *RSI) Warmup() int { return r.warmup + 1 }

func (r *RSI) Ready() bool { return r.changes >= r.warmup }

func (r *RSI) Reset() {
	r.prev = 0
	r.havePrev = false
	r.changes = 0
	r.avgGain = 0
	r.avgLoss = 0
}

func (r *RSI) Update(b market.Bar) {
	r.UpdateClose(b.Close)
}

// UpdateClose feeds the next close price.
func (r *RSI) UpdateClose(x float64) {
	if !r.havePrev {
		r.prev = x
		r.havePrev = true
		return
	}

	delta := x - r.prev
	r.prev = x

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	r.changes++
	if r.changes == 1 {
		r.avgGain = gain
		r.avgLoss = loss
		return
	}
	r.avgGain = r.alpha*gain + (1-r.alpha)*r.avgGain
	r.avgLoss = r.alpha*loss + (1-r.alpha)*r.avgLoss
}

func (r *RSI) Sample() Sample {
	if !r.Ready() || r.avgLoss == 0 {
		return None()
	}
	rs := r.avgGain / r.avgLoss
	return Some(100 - 100/(1+rs))
}

// RSISeries computes one RSI sample per close. warmup <= 0 means window.
func RSISeries(closes []float64, window, warmup int) ([]Sample, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}

	r := NewRSI(window).WithWarmup(warmup)
	out := make([]Sample, len(closes))
	for i, c := range closes {
		r.UpdateClose(c)
		out[i] = r.Sample()
	}
	return out, nil
}
