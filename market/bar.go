package market

import (
	"fmt"
	"math"
	"time"
)

// Date is a calendar day. Bars are grouped into trading days by Date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Bar is one OHLC bar of a single instrument.
type Bar struct {
	Time time.Time
	Date Date

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume       float64 // optional
	OpenInterest float64 // optional
}

// Valid checks the bar carries finite, positive prices.
func (b Bar) Valid() error {
	if b.Time.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrBadBar)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v <= 0 {
			return fmt.Errorf("%w: %s=%v at %s", ErrBadBar, p.name, p.v, b.Time.Format(time.RFC3339))
		}
	}
	return nil
}
