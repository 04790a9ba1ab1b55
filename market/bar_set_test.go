package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBar(t time.Time, o, h, l, c float64) Bar {
	return Bar{Time: t, Open: o, High: h, Low: l, Close: c}
}

func TestNewBarSetDayBoundaries(t *testing.T) {
	t.Parallel()

	d1 := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	bars := []Bar{
		mkBar(d1, 10, 11, 9, 10),
		mkBar(d1.Add(5*time.Minute), 10, 11, 9, 10),
		mkBar(d1.Add(10*time.Minute), 10, 11, 9, 10),
		mkBar(d2, 10, 11, 9, 10),
		mkBar(d2.Add(5*time.Minute), 10, 11, 9, 10),
	}

	bs, err := NewBarSet("TEST", bars)
	require.NoError(t, err)

	assert.Equal(t, 5, bs.Len())
	assert.Equal(t, 2, bs.Days())
	assert.Equal(t, []bool{false, false, true, false, true}, []bool{
		bs.LastOfDay(0), bs.LastOfDay(1), bs.LastOfDay(2), bs.LastOfDay(3), bs.LastOfDay(4),
	})
	assert.Equal(t, Date{2024, time.March, 4}, bs.Bars[0].Date)
	assert.Equal(t, "2024-03-05", bs.Bars[4].Date.String())
	assert.Equal(t, d1, bs.Start())
	assert.Equal(t, d2.Add(5*time.Minute), bs.End())
}

func TestNewBarSetSingleBar(t *testing.T) {
	t.Parallel()

	bs, err := NewBarSet("X", []Bar{mkBar(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), 1, 1, 1, 1)})
	require.NoError(t, err)
	assert.True(t, bs.LastOfDay(0))
	assert.Equal(t, 1, bs.Days())
}

func TestNewBarSetErrors(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		bars []Bar
		want error
	}{
		{"empty", nil, ErrNoBars},
		{"zero close", []Bar{mkBar(ts, 1, 1, 1, 0)}, ErrBadBar},
		{"nan high", []Bar{mkBar(ts, 1, math.NaN(), 1, 1)}, ErrBadBar},
		{"inf low", []Bar{mkBar(ts, 1, 1, math.Inf(1), 1)}, ErrBadBar},
		{"missing time", []Bar{{Open: 1, High: 1, Low: 1, Close: 1}}, ErrBadBar},
		{"duplicate time", []Bar{mkBar(ts, 1, 1, 1, 1), mkBar(ts, 1, 1, 1, 1)}, ErrNotMonotonic},
		{"descending", []Bar{mkBar(ts, 1, 1, 1, 1), mkBar(ts.Add(-time.Minute), 1, 1, 1, 1)}, ErrNotMonotonic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBarSet("X", tt.bars)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIterator(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	bs, err := NewBarSet("X", []Bar{
		mkBar(d, 1, 2, 1, 2),
		mkBar(d.Add(time.Minute), 2, 3, 2, 3),
	})
	require.NoError(t, err)

	it := bs.Iterator()
	var idx []int
	var closes []float64
	var last []bool
	for it.Next() {
		idx = append(idx, it.Index())
		closes = append(closes, it.Bar().Close)
		last = append(last, it.LastOfDay())
		assert.Equal(t, bs.Bars[it.Index()].Time, it.Time())
	}
	assert.Equal(t, []int{0, 1}, idx)
	assert.Equal(t, []float64{2, 3}, closes)
	assert.Equal(t, []bool{false, true}, last)
	assert.Equal(t, []float64{2, 3}, bs.Closes())
}
