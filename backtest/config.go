package backtest

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds the parameters of one RSI intraday backtest.
type Config struct {
	InitialCap  float64 `json:"initial_cap" yaml:"initial_cap" validate:"gt=0"`
	StopLossPct float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" validate:"gt=0,lt=1"`

	RSILong  float64 `json:"rsi_long" yaml:"rsi_long" validate:"gte=0,lte=100,gtfield=RSIShort"`
	RSIShort float64 `json:"rsi_short" yaml:"rsi_short" validate:"gte=0,lte=100"`

	MaxEntriesPerDay int `json:"max_entries_per_day" yaml:"max_entries_per_day" validate:"gte=0"`
	MaxExitsPerDay   int `json:"max_exits_per_day" yaml:"max_exits_per_day" validate:"gte=0"`

	// RSIWindow is the oscillator smoothing window; RSIWarmup is the number
	// of price changes before the first reading (0 = RSIWindow).
	RSIWindow int `json:"rsi_window" yaml:"rsi_window" validate:"gte=1"`
	RSIWarmup int `json:"rsi_warmup" yaml:"rsi_warmup" validate:"gte=0"`

	// RequireCurrentSignal additionally blocks entries on bars whose own
	// oscillator reading is unavailable.
	RequireCurrentSignal bool `json:"require_current_signal" yaml:"require_current_signal"`

	// BarsPerYear annualizes the Sharpe ratio (5 minute bars: 48 * 250).
	BarsPerYear float64 `json:"bars_per_year" yaml:"bars_per_year" validate:"gt=0"`
}

// DefaultBarsPerYear assumes 5 minute bars, 48 per session, 250 sessions.
const DefaultBarsPerYear = 48 * 250

// DefaultConfig returns the standard parameter set.
func DefaultConfig() Config {
	return Config{
		InitialCap:       1_000_000,
		StopLossPct:      0.01,
		RSILong:          70,
		RSIShort:         40,
		MaxEntriesPerDay: 5,
		MaxExitsPerDay:   5,
		RSIWindow:        14,
		BarsPerYear:      DefaultBarsPerYear,
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(yamlName)
}

func yamlName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// Validate checks the config, naming the first offending field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("%s must be less than %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "gtfield":
		other := fe.Param()
		if f, ok := reflect.TypeOf(Config{}).FieldByName(other); ok {
			other = yamlName(f)
		}
		return fmt.Sprintf("%s must be greater than %s (got %v)", fe.Field(), other, fe.Value())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

// Warmup returns the effective oscillator warmup.
func (c Config) Warmup() int {
	if c.RSIWarmup > 0 {
		return c.RSIWarmup
	}
	return c.RSIWindow
}
