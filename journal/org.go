package journal

import (
	"bytes"
	"database/sql"
	"fmt"
	"math"
	"os"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

var orgFuncs = template.FuncMap{
	"money": func(x float64) string {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "n/a"
		}
		return decimal.NewFromFloat(x).StringFixed(2)
	},
	"pct": func(x float64) string {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "n/a"
		}
		return decimal.NewFromFloat(x * 100).StringFixed(2)
	},
	"num": func(prec int, x float64) string {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "n/a"
		}
		return fmt.Sprintf("%.*f", prec, x)
	},
	"opt": func(v sql.NullFloat64) string {
		if !v.Valid {
			return ""
		}
		return fmt.Sprintf("%.4f", v.Float64)
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run as an Org-mode entry.
func FormatRunOrg(rec RunRecord) (string, error) {
	buf := new(bytes.Buffer)
	if err := orgTemplate.Execute(buf, rec); err != nil {
		return "", fmt.Errorf("journal: render org: %w", err)
	}
	return buf.String(), nil
}

// WriteRunOrg renders a run into the file at path.
func WriteRunOrg(path string, rec RunRecord) error {
	s, err := FormatRunOrg(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0644)
}

const RunOrgTemplate = `* BACKTEST: RSI intraday {{.Symbol}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    rsi_intraday
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{money .Summary.InitialCap}}
:END_BAL:     {{money .Summary.FinalEquity}}
:NET_PL:      {{money .Summary.CumPnL}}
:MAX_DD_PCT:  {{pct .Summary.MaxDrawdown}}
:SHARPE:      {{num 3 .Summary.Sharpe}}
:TRADES:      {{.Summary.NumTrades}}
:WINS:        {{.Summary.Wins}}
:LOSSES:      {{.Summary.Losses}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter            | Value |
|----------------------+-------|
| RSI window           | {{.Config.RSIWindow}} |
| RSI long threshold   | {{num 2 .Config.RSILong}} |
| RSI short threshold  | {{num 2 .Config.RSIShort}} |
| Stop loss %          | {{pct .Config.StopLossPct}} |
| Max entries per day  | {{.Config.MaxEntriesPerDay}} |
| Max exits per day    | {{.Config.MaxExitsPerDay}} |

** Performance Summary
- Net P/L:          *{{money .Summary.CumPnL}}*
- Max Drawdown:     *{{pct .Summary.MaxDrawdown}}%*
- Sharpe:           *{{num 3 .Summary.Sharpe}}*
- Win Rate:         *{{pct .Summary.WinRate}}%*
- Profit Factor:    *{{num 2 .Summary.ProfitFactor}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Entries | {{.Summary.Entries}} |
| Exits   | {{.Summary.Exits}} |
| Wins    | {{.Summary.Wins}} |
| Losses  | {{.Summary.Losses}} |
| Events  | {{.Summary.NumTrades}} |
{{- if .Events }}

** Ledger
| Time | Action | Price | Pos | Reason | RSI | Log return | Cash after |
|------+--------+-------+-----+--------+-----+------------+------------|
{{- range .Events }}
| {{.Time.Format "2006-01-02 15:04"}} | {{.Action}} | {{num 4 .Price}} | {{.PosAfter}} | {{.Reason}} | {{opt .Signal}} | {{opt .LogReturn}} | {{if .CashAfter.Valid}}{{money .CashAfter.Float64}}{{end}} |
{{- end }}
{{- end }}
`
