package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/intraday/backtest"
)

// SQLite stores runs, their ledgers and their bar tables.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordRun writes the run, its ledger and its bar table in one
// transaction.
func (j *SQLite) RecordRun(ctx context.Context, rec RunRecord) (err error) {
	cfg, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("journal: encode config: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	s := rec.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, dataset, symbol, start_time, end_time, config,
		 initial_cap, final_equity, cum_pnl, max_drawdown, sharpe, num_trades, bars,
		 entries, exits, wins, losses, win_rate, profit_factor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Created.UTC(), rec.Dataset, rec.Symbol, rec.Start.UTC(), rec.End.UTC(), string(cfg),
		s.InitialCap, s.FinalEquity, s.CumPnL, s.MaxDrawdown, nullable(s.Sharpe), s.NumTrades, s.Bars,
		s.Entries, s.Exits, s.Wins, s.Losses, s.WinRate, nullable(s.ProfitFactor),
	)
	if err != nil {
		return fmt.Errorf("journal: insert run %s: %w", rec.RunID, err)
	}

	if err = insertEvents(ctx, tx, rec.RunID, rec.Events); err != nil {
		return err
	}
	if err = insertRows(ctx, tx, rec.RunID, rec.Rows); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEvents(ctx context.Context, tx *sql.Tx, runID string, events []backtest.TradeEvent) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_events
		(run_id, seq, bar, time, action, price, qty, pos_after, reason, signal, log_return, cash_pnl, cash_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.ExecContext(ctx,
			runID, ev.Seq, ev.Bar, ev.Time.UTC(), string(ev.Action), ev.Price, ev.Qty, int(ev.PosAfter),
			string(ev.Reason), ev.Signal, ev.LogReturn, ev.CashPnL, ev.CashAfter,
		)
		if err != nil {
			return fmt.Errorf("journal: insert event %d: %w", ev.Seq, err)
		}
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, runID string, rows []backtest.Row) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars
		(run_id, idx, time, date, open, high, low, close, volume, signal, equity, cum_pnl, ret)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.ExecContext(ctx,
			runID, i, r.Time.UTC(), r.Date.String(), r.Open, r.High, r.Low, r.Close, r.Volume,
			nullable(r.Signal.Float64()), r.Equity, r.CumPnL, r.Ret,
		)
		if err != nil {
			return fmt.Errorf("journal: insert bar %d: %w", i, err)
		}
	}
	return nil
}

// DeleteRun removes a run and everything recorded with it.
func (j *SQLite) DeleteRun(ctx context.Context, runID string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nanIfNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
