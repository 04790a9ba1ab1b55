// Package report turns finished runs into presentation data: a chartable
// dataset, plain text summaries and an HTTP API over the run journal.
package report

import (
	"fmt"
	"time"

	"github.com/rustyeddy/intraday/backtest"
)

// Candle is one OHLC bar of the price panel.
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Point is one sample of a line; Value is nil where the series has no
// reading.
type Point struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

// Marker is a ledger event drawn on the price panel.
type Marker struct {
	Time   time.Time       `json:"time"`
	Price  float64         `json:"price"`
	Action backtest.Action `json:"action"`
	Reason backtest.Reason `json:"reason"`
}

// Oscillator is the indicator panel: the line, its entry thresholds and
// a fixed 0..100 axis.
type Oscillator struct {
	Name   string     `json:"name"`
	Points []Point    `json:"points"`
	Long   float64    `json:"long"`
	Short  float64    `json:"short"`
	Range  [2]float64 `json:"range"`
}

// Chart is the full three panel dataset of one run.
type Chart struct {
	Title      string              `json:"title"`
	Candles    []Candle            `json:"candles"`
	Markers    map[string][]Marker `json:"markers"`
	Oscillator Oscillator          `json:"oscillator"`
	CumPnL     []Point             `json:"cum_pnl"`
}

// Title formats the headline shown above a run's chart.
func Title(symbol string, s backtest.Summary) string {
	return fmt.Sprintf("%s | Final=%.2f | MDD=%.2f%% | Sharpe=%.3f",
		symbol, s.FinalEquity, s.MaxDrawdown*100, s.Sharpe)
}

// BuildChart assembles the dataset for one run. Markers are grouped by
// action; CLOSE markers are only included when revealClose is set.
func BuildChart(symbol string, rows []backtest.Row, events []backtest.TradeEvent, cfg backtest.Config, sum backtest.Summary, revealClose bool) Chart {
	ch := Chart{
		Title:   Title(symbol, sum),
		Candles: make([]Candle, len(rows)),
		Markers: make(map[string][]Marker),
		Oscillator: Oscillator{
			Name:   fmt.Sprintf("RSI(%d)", cfg.RSIWindow),
			Points: make([]Point, len(rows)),
			Long:   cfg.RSILong,
			Short:  cfg.RSIShort,
			Range:  [2]float64{0, 100},
		},
		CumPnL: make([]Point, len(rows)),
	}

	for i, r := range rows {
		ch.Candles[i] = Candle{Time: r.Time, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close}

		p := Point{Time: r.Time}
		if v, ok := r.Signal.Value(); ok {
			p.Value = &v
		}
		ch.Oscillator.Points[i] = p

		pnl := r.CumPnL
		ch.CumPnL[i] = Point{Time: r.Time, Value: &pnl}
	}

	for _, ev := range events {
		if ev.Action == backtest.Close && !revealClose {
			continue
		}
		name := string(ev.Action)
		ch.Markers[name] = append(ch.Markers[name], Marker{
			Time:   ev.Time,
			Price:  ev.Price,
			Action: ev.Action,
			Reason: ev.Reason,
		})
	}
	return ch
}
