package backtest

import (
	"database/sql"
	"time"

	"github.com/rustyeddy/intraday/indicators"
	"github.com/rustyeddy/intraday/market"
)

// Side: +1 long, -1 short, 0 flat
type Side int8

const (
	Flat  Side = 0
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Action is the order side recorded in the ledger.
type Action string

const (
	Buy   Action = "BUY"
	Sell  Action = "SELL"
	Close Action = "CLOSE"
)

// Reason explains why a ledger event happened.
type Reason string

const (
	ReasonLong      Reason = "LONG"
	ReasonShort     Reason = "SHORT"
	ReasonStopLong  Reason = "stop_long_loss"
	ReasonStopShort Reason = "stop_short_loss"
	ReasonEndOfDay  Reason = "END_TODAY"
)

// TradeEvent is one immutable ledger entry.
//
// Signal is the oscillator reading the engine acted on. LogReturn, CashPnL
// and CashAfter are only set on events that realize PnL.
type TradeEvent struct {
	Seq      int
	Bar      int // index into the bar sequence
	Time     time.Time
	Action   Action
	Price    float64
	Qty      int
	PosAfter Side
	Reason   Reason

	Signal    sql.NullFloat64
	LogReturn sql.NullFloat64
	CashPnL   sql.NullFloat64
	CashAfter sql.NullFloat64
}

// Realized reports whether the event closed a position.
func (e TradeEvent) Realized() bool {
	return e.CashPnL.Valid
}

// IsEntry reports whether the event opened a position.
func (e TradeEvent) IsEntry() bool {
	return e.Reason == ReasonLong || e.Reason == ReasonShort
}

// IsStop reports whether the event was a stop-loss exit.
func (e TradeEvent) IsStop() bool {
	return e.Reason == ReasonStopLong || e.Reason == ReasonStopShort
}

// EquityPoint is the mark-to-market equity after one bar.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Row is one line of the augmented bar table.
type Row struct {
	market.Bar
	Signal indicators.Sample
	Equity float64
	CumPnL float64
	Ret    float64
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func sampleNull(s indicators.Sample) sql.NullFloat64 {
	v, ok := s.Value()
	return sql.NullFloat64{Float64: v, Valid: ok}
}
