package backtest

import (
	"encoding/json"
	"math"
)

// Summary is the performance record of a finished run.
//
// Sharpe is NaN when the return series has zero variance. ProfitFactor is
// NaN when no exit lost money.
type Summary struct {
	InitialCap  float64
	FinalEquity float64
	CumPnL      float64
	MaxDrawdown float64 // fraction <= 0
	Sharpe      float64
	NumTrades   int // ledger entries

	Bars         int
	Entries      int
	Exits        int
	Wins         int
	Losses       int
	WinRate      float64
	ProfitFactor float64
}

// SharpeDefined reports whether Sharpe holds a number.
func (s Summary) SharpeDefined() bool {
	return !math.IsNaN(s.Sharpe)
}

// ComputeSummary derives the performance record from an equity series and
// its ledger. It returns ErrNotRun for an empty equity series.
func ComputeSummary(initialCap float64, equity []EquityPoint, trades []TradeEvent, barsPerYear float64) (Summary, error) {
	if len(equity) == 0 {
		return Summary{}, ErrNotRun
	}

	final := equity[len(equity)-1].Equity
	s := Summary{
		InitialCap:   initialCap,
		FinalEquity:  final,
		CumPnL:       final - initialCap,
		MaxDrawdown:  MaxDrawdown(equity),
		Sharpe:       Sharpe(Returns(equity), barsPerYear),
		NumTrades:    len(trades),
		Bars:         len(equity),
		ProfitFactor: math.NaN(),
	}

	var grossProfit, grossLoss float64
	for _, ev := range trades {
		if ev.IsEntry() {
			s.Entries++
		}
		if !ev.Realized() {
			continue
		}
		s.Exits++
		switch pnl := ev.CashPnL.Float64; {
		case pnl > 0:
			s.Wins++
			grossProfit += pnl
		case pnl < 0:
			s.Losses++
			grossLoss -= pnl
		}
	}
	if s.Exits > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Exits)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	}
	return s, nil
}

// Returns computes per-bar simple returns; the first is 0.
func Returns(equity []EquityPoint) []float64 {
	out := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		out[i] = equity[i].Equity/equity[i-1].Equity - 1
	}
	return out
}

// Drawdowns returns equity/running-peak - 1 for every bar.
func Drawdowns(equity []EquityPoint) []float64 {
	out := make([]float64, len(equity))
	peak := math.Inf(-1)
	for i, pt := range equity {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		out[i] = pt.Equity/peak - 1
	}
	return out
}

// MaxDrawdown is the minimum of Drawdowns, 0 if equity never falls below a
// previous peak.
func MaxDrawdown(equity []EquityPoint) float64 {
	mdd := 0.0
	for _, dd := range Drawdowns(equity) {
		if dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

// Sharpe is mean/stdev*sqrt(barsPerYear) using the population standard
// deviation. It returns NaN when the deviation is zero.
func Sharpe(rets []float64, barsPerYear float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}

	n := float64(len(rets))
	mu := 0.0
	for _, r := range rets {
		mu += r
	}
	mu /= n

	ss := 0.0
	for _, r := range rets {
		d := r - mu
		ss += d * d
	}
	sig := math.Sqrt(ss / n)
	if !(sig > 0) {
		return math.NaN()
	}
	return mu / sig * math.Sqrt(barsPerYear)
}

// summaryJSON mirrors Summary with NaN fields mapped to null.
type summaryJSON struct {
	InitialCap   float64  `json:"initial_cap"`
	FinalEquity  float64  `json:"final_equity"`
	CumPnL       float64  `json:"cum_pnl"`
	MaxDrawdown  float64  `json:"max_drawdown"`
	Sharpe       *float64 `json:"sharpe"`
	NumTrades    int      `json:"num_trades"`
	Bars         int      `json:"bars"`
	Entries      int      `json:"entries"`
	Exits        int      `json:"exits"`
	Wins         int      `json:"wins"`
	Losses       int      `json:"losses"`
	WinRate      float64  `json:"win_rate"`
	ProfitFactor *float64 `json:"profit_factor"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		InitialCap:   s.InitialCap,
		FinalEquity:  s.FinalEquity,
		CumPnL:       s.CumPnL,
		MaxDrawdown:  s.MaxDrawdown,
		Sharpe:       finiteOrNil(s.Sharpe),
		NumTrades:    s.NumTrades,
		Bars:         s.Bars,
		Entries:      s.Entries,
		Exits:        s.Exits,
		Wins:         s.Wins,
		Losses:       s.Losses,
		WinRate:      s.WinRate,
		ProfitFactor: finiteOrNil(s.ProfitFactor),
	})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var v summaryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Summary{
		InitialCap:   v.InitialCap,
		FinalEquity:  v.FinalEquity,
		CumPnL:       v.CumPnL,
		MaxDrawdown:  v.MaxDrawdown,
		Sharpe:       nanIfNil(v.Sharpe),
		NumTrades:    v.NumTrades,
		Bars:         v.Bars,
		Entries:      v.Entries,
		Exits:        v.Exits,
		Wins:         v.Wins,
		Losses:       v.Losses,
		WinRate:      v.WinRate,
		ProfitFactor: nanIfNil(v.ProfitFactor),
	}
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nanIfNil(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
