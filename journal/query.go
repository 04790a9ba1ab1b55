package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/indicators"
	"github.com/rustyeddy/intraday/market"
)

const runColumns = `run_id, created, dataset, symbol, start_time, end_time, config,
	initial_cap, final_equity, cum_pnl, max_drawdown, sharpe, num_trades, bars,
	entries, exits, wins, losses, win_rate, profit_factor`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec        RunRecord
		cfg        string
		sharpe, pf sql.NullFloat64
	)
	s := &rec.Summary
	err := row.Scan(
		&rec.RunID, &rec.Created, &rec.Dataset, &rec.Symbol, &rec.Start, &rec.End, &cfg,
		&s.InitialCap, &s.FinalEquity, &s.CumPnL, &s.MaxDrawdown, &sharpe, &s.NumTrades, &s.Bars,
		&s.Entries, &s.Exits, &s.Wins, &s.Losses, &s.WinRate, &pf,
	)
	if err != nil {
		return RunRecord{}, err
	}
	s.Sharpe = nanIfNull(sharpe)
	s.ProfitFactor = nanIfNull(pf)

	if err := json.Unmarshal([]byte(cfg), &rec.Config); err != nil {
		return RunRecord{}, fmt.Errorf("journal: decode config of %s: %w", rec.RunID, err)
	}
	return rec, nil
}

// GetRun returns a run's header and summary without its ledger or bars.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return rec, err
}

// LoadRun returns a run with its ledger and bar table.
func (j *SQLite) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	rec, err := j.GetRun(ctx, runID)
	if err != nil {
		return RunRecord{}, err
	}
	if rec.Events, err = j.ListTradeEvents(ctx, runID); err != nil {
		return RunRecord{}, err
	}
	if rec.Rows, err = j.ListBars(ctx, runID); err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradeEvents returns a run's ledger in order.
func (j *SQLite) ListTradeEvents(ctx context.Context, runID string) ([]backtest.TradeEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, bar, time, action, price, qty, pos_after, reason, signal, log_return, cash_pnl, cash_after
		FROM trade_events
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.TradeEvent
	for rows.Next() {
		var (
			ev             backtest.TradeEvent
			action, reason string
			pos            int
		)
		if err := rows.Scan(
			&ev.Seq, &ev.Bar, &ev.Time, &action, &ev.Price, &ev.Qty, &pos, &reason,
			&ev.Signal, &ev.LogReturn, &ev.CashPnL, &ev.CashAfter,
		); err != nil {
			return nil, err
		}
		ev.Action = backtest.Action(action)
		ev.Reason = backtest.Reason(reason)
		ev.PosAfter = backtest.Side(pos)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBars returns a run's augmented bar table in order.
func (j *SQLite) ListBars(ctx context.Context, runID string) ([]backtest.Row, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, date, open, high, low, close, volume, signal, equity, cum_pnl, ret
		FROM bars
		WHERE run_id = ?
		ORDER BY idx ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.Row
	for rows.Next() {
		var (
			r    backtest.Row
			date string
			sig  sql.NullFloat64
		)
		if err := rows.Scan(
			&r.Time, &date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &sig, &r.Equity, &r.CumPnL, &r.Ret,
		); err != nil {
			return nil, err
		}
		if sig.Valid {
			r.Signal = indicators.Some(sig.Float64)
		}
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("journal: bar date %q: %w", date, err)
		}
		r.Date = market.DateOf(d)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
