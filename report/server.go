package report

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/journal"
)

// Store is the read side of the run journal.
type Store interface {
	ListRuns(ctx context.Context, limit int) ([]journal.RunRecord, error)
	GetRun(ctx context.Context, runID string) (journal.RunRecord, error)
	LoadRun(ctx context.Context, runID string) (journal.RunRecord, error)
	ListTradeEvents(ctx context.Context, runID string) ([]backtest.TradeEvent, error)
}

// RunJSON is the API form of a journaled run.
type RunJSON struct {
	RunID   string           `json:"run_id"`
	Created time.Time        `json:"created"`
	Dataset string           `json:"dataset"`
	Symbol  string           `json:"symbol"`
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"`
	Config  backtest.Config  `json:"config"`
	Summary backtest.Summary `json:"summary"`
}

// EventJSON is the API form of a ledger entry; absent numbers are null.
type EventJSON struct {
	Seq       int             `json:"seq"`
	Time      time.Time       `json:"datetime"`
	Action    backtest.Action `json:"action"`
	Price     float64         `json:"price"`
	Qty       int             `json:"qty"`
	PosAfter  int             `json:"pos_after"`
	Reason    backtest.Reason `json:"reason"`
	RSI       *float64        `json:"rsi"`
	LogReturn *float64        `json:"log_return"`
	CashPnL   *float64        `json:"cash_pnl"`
	CashAfter *float64        `json:"cash_after"`
}

func NewRunJSON(r journal.RunRecord) RunJSON {
	return RunJSON{
		RunID:   r.RunID,
		Created: r.Created,
		Dataset: r.Dataset,
		Symbol:  r.Symbol,
		Start:   r.Start,
		End:     r.End,
		Config:  r.Config,
		Summary: r.Summary,
	}
}

func NewEventJSON(ev backtest.TradeEvent) EventJSON {
	ptr := func(v float64, ok bool) *float64 {
		if !ok {
			return nil
		}
		return &v
	}
	return EventJSON{
		Seq:       ev.Seq,
		Time:      ev.Time,
		Action:    ev.Action,
		Price:     ev.Price,
		Qty:       ev.Qty,
		PosAfter:  int(ev.PosAfter),
		Reason:    ev.Reason,
		RSI:       ptr(ev.Signal.Float64, ev.Signal.Valid),
		LogReturn: ptr(ev.LogReturn.Float64, ev.LogReturn.Valid),
		CashPnL:   ptr(ev.CashPnL.Float64, ev.CashPnL.Valid),
		CashAfter: ptr(ev.CashAfter.Float64, ev.CashAfter.Valid),
	}
}

type server struct {
	store  Store
	logger *zap.Logger
}

// NewRouter serves journaled runs and their chart datasets.
func NewRouter(store Store, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{store: store, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", s.handleHealth)
	api := r.Group("/api/v1")
	{
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/runs/:id/trades", s.handleTrades)
		api.GET("/runs/:id/chart", s.handleChart)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *server) handleListRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]RunJSON, len(runs))
	for i, r := range runs {
		out[i] = NewRunJSON(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *server) handleGetRun(c *gin.Context) {
	rec, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRunJSON(rec))
}

func (s *server) handleTrades(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetRun(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	events, err := s.store.ListTradeEvents(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]EventJSON, len(events))
	for i, ev := range events {
		out[i] = NewEventJSON(ev)
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "trades": out})
}

func (s *server) handleChart(c *gin.Context) {
	rec, err := s.store.LoadRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	reveal, _ := strconv.ParseBool(c.DefaultQuery("reveal_close", "false"))
	c.JSON(http.StatusOK, BuildChart(rec.Symbol, rec.Rows, rec.Events, rec.Config, rec.Summary, reveal))
}

func (s *server) fail(c *gin.Context, err error) {
	if errors.Is(err, journal.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error("journal query failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
