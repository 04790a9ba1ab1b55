package backtest

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/rustyeddy/intraday/indicators"
	"github.com/rustyeddy/intraday/market"
)

// cancelEvery is how many bars pass between context checks.
const cancelEvery = 1024

// Engine runs the RSI intraday strategy over one bar sequence.
//
// Rules, applied to every bar in this order:
//  1. a new calendar date resets the daily entry/exit counters
//  2. an open position is stopped out at the bar close when the bar's
//     low (long) or high (short) crosses entry*(1∓StopLossPct)
//  3. when flat, the previous bar's oscillator opens a long (>= RSILong)
//     or short (<= RSIShort) at this bar's open, unless a stop fired on
//     this bar
//  4. the current reading becomes the previous one
//  5. the last bar of each day closes any open position at its close
//  6. equity is marked to market at the close
//
// Cash only ever changes by cash *= exp(log return). An Engine is not safe
// for concurrent use; run independent Engines in parallel instead.
type Engine struct {
	cfg     Config
	bars    *market.BarSet
	signals []indicators.Sample

	trades []TradeEvent
	equity []EquityPoint

	ran bool
}

// NewEngine checks all preconditions up front so Run never fails on input.
func NewEngine(bars *market.BarSet, signals []indicators.Sample, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bars == nil || bars.Len() == 0 {
		return nil, ErrNoBars
	}
	if len(signals) != bars.Len() {
		return nil, fmt.Errorf("%w: %d signals for %d bars", ErrSignalLength, len(signals), bars.Len())
	}
	for i, s := range signals {
		if v, ok := s.Value(); ok && (v < 0 || v > 100) {
			return nil, fmt.Errorf("%w: %v at bar %d", ErrSignalRange, v, i)
		}
	}

	return &Engine{
		cfg:     cfg,
		bars:    bars,
		signals: signals,
	}, nil
}

func (e *Engine) Config() Config       { return e.cfg }
func (e *Engine) Bars() *market.BarSet { return e.bars }

// Trades returns a copy of the ledger of the last run.
func (e *Engine) Trades() []TradeEvent {
	return append([]TradeEvent(nil), e.trades...)
}

// Equity returns a copy of the equity series of the last run, one point
// per bar.
func (e *Engine) Equity() []EquityPoint {
	return append([]EquityPoint(nil), e.equity...)
}

// Run executes the simulation. Calling Run again starts over from a fresh
// state. The only error is ctx's, checked between bars.
func (e *Engine) Run(ctx context.Context) error {
	e.trades = nil
	e.equity = nil
	e.ran = false

	st := newRunState(&e.cfg)
	equity := make([]EquityPoint, 0, e.bars.Len())

	it := e.bars.Iterator()
	for it.Next() {
		i := it.Index()
		if i%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		b := it.Bar()
		cur := e.signals[i]

		st.rollDay(b.Date)
		stopped := st.checkStop(i, b)
		if !stopped {
			st.checkEntry(i, b, cur)
		}
		st.prev = cur

		if it.LastOfDay() {
			st.closeDay(i, b)
		}

		equity = append(equity, EquityPoint{Time: b.Time, Equity: st.markToMarket(b.Close)})
	}

	e.trades = st.events
	e.equity = equity
	e.ran = true
	return nil
}

// Summary computes performance metrics of the last run.
func (e *Engine) Summary() (Summary, error) {
	if !e.ran {
		return Summary{}, ErrNotRun
	}
	return ComputeSummary(e.cfg.InitialCap, e.equity, e.trades, e.cfg.BarsPerYear)
}

// Table returns the bars augmented with signal, equity, cumulative PnL
// and simple return of the last run.
func (e *Engine) Table() ([]Row, error) {
	if !e.ran {
		return nil, ErrNotRun
	}

	rets := Returns(e.equity)
	rows := make([]Row, len(e.equity))
	for i, pt := range e.equity {
		rows[i] = Row{
			Bar:    e.bars.Bars[i],
			Signal: e.signals[i],
			Equity: pt.Equity,
			CumPnL: pt.Equity - e.cfg.InitialCap,
			Ret:    rets[i],
		}
	}
	return rows, nil
}

// runState is the mutable state of a single run. It is created by Run and
// never escapes it.
type runState struct {
	cfg *Config

	side  Side
	entry float64
	cash  float64

	day          market.Date
	haveDay      bool
	entriesToday int
	exitsToday   int

	prev indicators.Sample

	events []TradeEvent
}

func newRunState(cfg *Config) *runState {
	return &runState{
		cfg:   cfg,
		cash:  cfg.InitialCap,
		entry: math.NaN(),
	}
}

func (st *runState) rollDay(d market.Date) {
	if !st.haveDay {
		st.day = d
		st.haveDay = true
		return
	}
	if d != st.day {
		st.entriesToday = 0
		st.exitsToday = 0
		st.day = d
	}
}

func (st *runState) checkStop(i int, b market.Bar) bool {
	if st.side == Flat || math.IsNaN(st.entry) || st.exitsToday >= st.cfg.MaxExitsPerDay {
		return false
	}

	var action Action
	var reason Reason
	switch st.side {
	case Long:
		if b.Low > st.entry*(1-st.cfg.StopLossPct) {
			return false
		}
		action, reason = Sell, ReasonStopLong
	case Short:
		if b.High < st.entry*(1+st.cfg.StopLossPct) {
			return false
		}
		action, reason = Buy, ReasonStopShort
	}

	// Filled at the bar close, not at the stop level.
	ret, pnl := st.realize(b.Close)
	st.exitsToday++
	st.record(i, b, action, b.Close, reason, sampleNull(st.prev), ret, pnl)
	return true
}

func (st *runState) checkEntry(i int, b market.Bar, cur indicators.Sample) {
	if st.side != Flat || st.entriesToday >= st.cfg.MaxEntriesPerDay {
		return
	}
	prev, ok := st.prev.Value()
	if !ok {
		return
	}
	if st.cfg.RequireCurrentSignal && !cur.Valid() {
		return
	}

	switch {
	case prev >= st.cfg.RSILong:
		st.open(Long)
		st.entry = b.Open
		st.record(i, b, Buy, b.Open, ReasonLong, nullFloat(prev), nil, nil)
	case prev <= st.cfg.RSIShort:
		st.open(Short)
		st.entry = b.Open
		st.record(i, b, Sell, b.Open, ReasonShort, nullFloat(prev), nil, nil)
	}
}

func (st *runState) open(s Side) {
	st.side = s
	st.entriesToday++
}

// closeDay liquidates at the close regardless of the exit cap.
func (st *runState) closeDay(i int, b market.Bar) {
	if st.side == Flat {
		return
	}
	ret, pnl := st.realize(b.Close)
	st.record(i, b, Close, b.Close, ReasonEndOfDay, sampleNull(st.prev), ret, pnl)
}

// realize books the position's log return into cash and goes flat.
func (st *runState) realize(px float64) (*float64, *float64) {
	ret := st.logReturn(px)
	before := st.cash
	st.cash *= math.Exp(ret)
	pnl := st.cash - before

	st.side = Flat
	st.entry = math.NaN()
	return &ret, &pnl
}

func (st *runState) logReturn(px float64) float64 {
	if st.side == Long {
		return math.Log(px) - math.Log(st.entry)
	}
	return math.Log(st.entry) - math.Log(px)
}

func (st *runState) markToMarket(px float64) float64 {
	if st.side == Flat || math.IsNaN(st.entry) {
		return st.cash
	}
	return st.cash * math.Exp(st.logReturn(px))
}

func (st *runState) record(i int, b market.Bar, a Action, px float64, r Reason, sig sql.NullFloat64, ret, pnl *float64) {
	ev := TradeEvent{
		Seq:      len(st.events),
		Bar:      i,
		Time:     b.Time,
		Action:   a,
		Price:    px,
		Qty:      1,
		PosAfter: st.side,
		Reason:   r,
		Signal:   sig,
	}
	if ret != nil {
		ev.LogReturn = nullFloat(*ret)
	}
	if pnl != nil {
		ev.CashPnL = nullFloat(*pnl)
		ev.CashAfter = nullFloat(st.cash)
	}
	st.events = append(st.events, ev)
}
