package journal

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	TradeColumns = []string{"run_id", "datetime", "action", "price", "qty", "pos_after", "reason", "rsi", "log_return", "cash_pnl", "cash_after"}
	BarColumns   = []string{"run_id", "datetime", "open", "high", "low", "close", "volume", "rsi", "equity", "cum_pnl", "ret"}
)

// CSV appends every recorded run to a ledger file and a bar table file.
type CSV struct {
	trades *csv.Writer
	bars   *csv.Writer
	tf, bf *os.File
}

func NewCSV(tradesPath, barsPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	bf, err := os.Create(barsPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSV{
		trades: csv.NewWriter(tf),
		bars:   csv.NewWriter(bf),
		tf:     tf,
		bf:     bf,
	}
	if err := j.writeHeaders(); err != nil {
		_ = tf.Close()
		_ = bf.Close()
		return nil, fmt.Errorf("journal: write csv headers: %w", err)
	}
	return j, nil
}

func (j *CSV) writeHeaders() error {
	if err := j.trades.Write(TradeColumns); err != nil {
		return err
	}
	if err := j.bars.Write(BarColumns); err != nil {
		return err
	}
	return j.flush()
}

func (j *CSV) RecordRun(_ context.Context, rec RunRecord) error {
	for _, ev := range rec.Events {
		err := j.trades.Write([]string{
			rec.RunID,
			ev.Time.Format(time.RFC3339),
			string(ev.Action),
			f(ev.Price),
			strconv.Itoa(ev.Qty),
			strconv.Itoa(int(ev.PosAfter)),
			string(ev.Reason),
			nf(ev.Signal),
			nf(ev.LogReturn),
			nmoney(ev.CashPnL),
			nmoney(ev.CashAfter),
		})
		if err != nil {
			return err
		}
	}

	for _, r := range rec.Rows {
		rsi := ""
		if v, ok := r.Signal.Value(); ok {
			rsi = f(v)
		}
		err := j.bars.Write([]string{
			rec.RunID,
			r.Time.Format(time.RFC3339),
			f(r.Open),
			f(r.High),
			f(r.Low),
			f(r.Close),
			f(r.Volume),
			rsi,
			money(r.Equity),
			money(r.CumPnL),
			f(r.Ret),
		})
		if err != nil {
			return err
		}
	}
	return j.flush()
}

func (j *CSV) flush() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.bars.Flush()
	return j.bars.Error()
}

func (j *CSV) Close() error {
	if err := j.flush(); err != nil {
		return err
	}
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.bf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func nf(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return f(v.Float64)
}

// money renders cash amounts to the cent.
func money(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(2)
}

func nmoney(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return money(v.Float64)
}

