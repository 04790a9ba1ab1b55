package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/config"
)

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("journal: run not found")

// RunRecord is everything kept about one finished backtest.
type RunRecord struct {
	RunID   string
	Created time.Time
	Dataset string
	Symbol  string
	Start   time.Time
	End     time.Time

	Config  backtest.Config
	Summary backtest.Summary

	// Events and Rows are only filled by the full loaders.
	Events []backtest.TradeEvent
	Rows   []backtest.Row
}

// NewRunRecord collects the results of a finished engine run.
func NewRunRecord(runID string, created time.Time, e *backtest.Engine) (RunRecord, error) {
	sum, err := e.Summary()
	if err != nil {
		return RunRecord{}, err
	}
	rows, err := e.Table()
	if err != nil {
		return RunRecord{}, err
	}

	bs := e.Bars()
	return RunRecord{
		RunID:   runID,
		Created: created,
		Dataset: bs.Source,
		Symbol:  bs.Symbol,
		Start:   bs.Start(),
		End:     bs.End(),
		Config:  e.Config(),
		Summary: sum,
		Events:  e.Trades(),
		Rows:    rows,
	}, nil
}

type Journal interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	Close() error
}

// Open builds the journal selected by the config. Type "none" yields a
// journal that discards everything.
func Open(cfg config.JournalConfig) (Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLite(cfg.DBPath)
	case "csv":
		return NewCSV(cfg.TradesFile, cfg.BarsFile)
	case "", "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("journal: unknown type %q", cfg.Type)
	}
}

// Discard is a Journal that records nothing.
type Discard struct{}

func (Discard) RecordRun(context.Context, RunRecord) error { return nil }
func (Discard) Close() error                               { return nil }
