package market

import (
	"fmt"
	"time"
)

// BarSet is an ordered, validated sequence of bars for one instrument.
//
// Day boundaries are computed once at construction so consumers never have
// to peek at the next bar to know whether the current one closes the day.
type BarSet struct {
	Symbol string
	Source string
	Bars   []Bar

	lastOfDay []bool
	days      int
}

// NewBarSet validates bars and builds the day-boundary index.
// Bars must be sorted ascending with strictly increasing timestamps.
func NewBarSet(symbol string, bars []Bar) (*BarSet, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	for i := range bars {
		if bars[i].Date.IsZero() {
			bars[i].Date = DateOf(bars[i].Time)
		}
		if err := bars[i].Valid(); err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && !bars[i].Time.After(bars[i-1].Time) {
			return nil, fmt.Errorf("%w: bar %d (%s) follows %s", ErrNotMonotonic, i,
				bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}

	bs := &BarSet{
		Symbol:    symbol,
		Bars:      bars,
		lastOfDay: make([]bool, len(bars)),
	}
	for i := range bars {
		if i == len(bars)-1 || bars[i+1].Date != bars[i].Date {
			bs.lastOfDay[i] = true
			bs.days++
		}
	}
	return bs, nil
}

// Len returns the number of bars.
func (bs *BarSet) Len() int {
	return len(bs.Bars)
}

// Days returns the number of distinct trading days.
func (bs *BarSet) Days() int {
	return bs.days
}

// LastOfDay reports whether bar i is the final bar of its calendar date
// (or of the whole sequence).
func (bs *BarSet) LastOfDay(i int) bool {
	return bs.lastOfDay[i]
}

// Closes returns the close prices in bar order.
func (bs *BarSet) Closes() []float64 {
	out := make([]float64, len(bs.Bars))
	for i, b := range bs.Bars {
		out[i] = b.Close
	}
	return out
}

// Start and End return the first and last bar timestamps.
func (bs *BarSet) Start() time.Time { return bs.Bars[0].Time }
func (bs *BarSet) End() time.Time   { return bs.Bars[len(bs.Bars)-1].Time }

// Iterator walks a BarSet front to back.
type Iterator struct {
	bs  *BarSet
	idx int
}

func (bs *BarSet) Iterator() *Iterator {
	return &Iterator{
		bs:  bs,
		idx: -1,
	}
}

func (it *Iterator) Next() bool {
	it.idx++
	return it.idx < len(it.bs.Bars)
}

func (it *Iterator) Bar() Bar {
	return it.bs.Bars[it.idx]
}

func (it *Iterator) Index() int {
	return it.idx
}

func (it *Iterator) Time() time.Time {
	return it.bs.Bars[it.idx].Time
}

// LastOfDay reports whether the current bar closes its trading day.
func (it *Iterator) LastOfDay() bool {
	return it.bs.lastOfDay[it.idx]
}
