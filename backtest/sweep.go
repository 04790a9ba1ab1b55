package backtest

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/intraday/indicators"
	"github.com/rustyeddy/intraday/market"
)

// Grid lists the values to try for each swept parameter. An empty
// dimension keeps the base config's value.
type Grid struct {
	RSILong     []float64 `json:"rsi_long,omitempty" yaml:"rsi_long,omitempty"`
	RSIShort    []float64 `json:"rsi_short,omitempty" yaml:"rsi_short,omitempty"`
	StopLossPct []float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty"`
	RSIWindow   []int     `json:"rsi_window,omitempty" yaml:"rsi_window,omitempty"`
}

// Expand returns the cartesian product of the grid applied to base.
// Combinations that fail validation (e.g. rsi_long <= rsi_short) are
// dropped.
func (g Grid) Expand(base Config) []Config {
	longs := orDefault(g.RSILong, base.RSILong)
	shorts := orDefault(g.RSIShort, base.RSIShort)
	stops := orDefault(g.StopLossPct, base.StopLossPct)
	windows := g.RSIWindow
	if len(windows) == 0 {
		windows = []int{base.RSIWindow}
	}

	var out []Config
	for _, w := range windows {
		for _, sl := range stops {
			for _, lo := range longs {
				for _, sh := range shorts {
					c := base
					c.RSIWindow = w
					c.StopLossPct = sl
					c.RSILong = lo
					c.RSIShort = sh
					if c.Validate() != nil {
						continue
					}
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func orDefault(vs []float64, def float64) []float64 {
	if len(vs) == 0 {
		return []float64{def}
	}
	return vs
}

// RSIFor computes the oscillator series cfg asks for over the bar closes.
func RSIFor(bars *market.BarSet, cfg Config) ([]indicators.Sample, error) {
	if cfg.RSIWindow <= 0 {
		return nil, fmt.Errorf("%w: rsi_window must be at least 1 (got %d)", ErrInvalidConfig, cfg.RSIWindow)
	}
	if bars == nil || bars.Len() == 0 {
		return nil, ErrNoBars
	}
	return indicators.Series(indicators.NewRSI(cfg.RSIWindow).WithWarmup(cfg.Warmup()), bars), nil
}

// SweepOptions controls a parameter sweep.
type SweepOptions struct {
	// Workers bounds concurrent runs; <= 0 means GOMAXPROCS.
	Workers int

	// Signals, when set, is used for every run instead of computing the
	// RSI from closes (e.g. a precomputed column from the data file).
	Signals []indicators.Sample

	Logger *zap.Logger
}

// SweepResult pairs a config with its outcome.
type SweepResult struct {
	Config  Config
	Summary Summary
}

// Sweep runs one independent engine per config in parallel. Bars and
// signals are shared read-only; every run owns its state. Results are in
// config order.
func Sweep(ctx context.Context, bars *market.BarSet, configs []Config, opts SweepOptions) ([]SweepResult, error) {
	if bars == nil || bars.Len() == 0 {
		return nil, ErrNoBars
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Oscillator series are computed once per distinct window/warmup
	// before any goroutine starts, so workers only read them.
	type key struct{ window, warmup int }
	series := make(map[key][]indicators.Sample)
	if opts.Signals == nil {
		for _, c := range configs {
			k := key{c.RSIWindow, c.Warmup()}
			if _, ok := series[k]; ok {
				continue
			}
			s, err := RSIFor(bars, c)
			if err != nil {
				return nil, fmt.Errorf("sweep: %w", err)
			}
			series[k] = s
		}
	}

	results := make([]SweepResult, len(configs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, cfg := range configs {
		i, cfg := i, cfg
		signals := opts.Signals
		if signals == nil {
			signals = series[key{cfg.RSIWindow, cfg.Warmup()}]
		}

		g.Go(func() error {
			e, err := NewEngine(bars, signals, cfg)
			if err != nil {
				return fmt.Errorf("sweep run %d: %w", i, err)
			}
			if err := e.Run(ctx); err != nil {
				return fmt.Errorf("sweep run %d: %w", i, err)
			}
			sum, err := e.Summary()
			if err != nil {
				return fmt.Errorf("sweep run %d: %w", i, err)
			}
			results[i] = SweepResult{Config: cfg, Summary: sum}

			log.Debug("sweep run done",
				zap.Int("run", i),
				zap.Float64("rsi_long", cfg.RSILong),
				zap.Float64("rsi_short", cfg.RSIShort),
				zap.Float64("stop_loss_pct", cfg.StopLossPct),
				zap.Int("rsi_window", cfg.RSIWindow),
				zap.Float64("final_equity", sum.FinalEquity),
				zap.Int("trades", sum.NumTrades),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Rank sorts results best first: by Sharpe (undefined last), then by
// final equity.
func Rank(results []SweepResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Summary, results[j].Summary
		an, bn := math.IsNaN(a.Sharpe), math.IsNaN(b.Sharpe)
		if an != bn {
			return bn
		}
		if !an && a.Sharpe != b.Sharpe {
			return a.Sharpe > b.Sharpe
		}
		return a.FinalEquity > b.FinalEquity
	})
}
