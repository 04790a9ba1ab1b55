package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/intraday/backtest"
	"github.com/rustyeddy/intraday/market"
)

// Config represents the complete intraday backtest configuration
type Config struct {
	Data     DataConfig      `json:"data" yaml:"data"`
	Strategy backtest.Config `json:"strategy" yaml:"strategy"`
	Sweep    SweepConfig     `json:"sweep" yaml:"sweep"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
	Logging  LoggingConfig   `json:"logging" yaml:"logging"`
	Server   ServerConfig    `json:"server" yaml:"server"`
}

// DataConfig describes the bar file
type DataConfig struct {
	Path           string `json:"path" yaml:"path"`
	Symbol         string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	SymbolPrefix   string `json:"symbol_prefix,omitempty" yaml:"symbol_prefix,omitempty"`
	DatetimeColumn string `json:"datetime_column,omitempty" yaml:"datetime_column,omitempty"`
	// SignalColumn names a precomputed oscillator column; empty means the
	// RSI is computed from closes.
	SignalColumn string `json:"signal_column,omitempty" yaml:"signal_column,omitempty"`
	Timezone     string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// SweepConfig contains the parameter grid
type SweepConfig struct {
	Grid    backtest.Grid `json:"grid" yaml:"grid"`
	Workers int           `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"`
	Top     int           `json:"top,omitempty" yaml:"top,omitempty" validate:"gte=0"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type" validate:"oneof=none csv sqlite"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty" validate:"required_if=Type sqlite"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty" validate:"required_if=Type csv"`
	BarsFile   string `json:"bars_file,omitempty" yaml:"bars_file,omitempty" validate:"required_if=Type csv"`
	OrgPath    string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
	ChartPath  string `json:"chart_path,omitempty" yaml:"chart_path,omitempty"`
}

// LoggingConfig selects the zap level and encoding
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=console json"`
}

// ServerConfig contains the HTTP listener settings
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" validate:"required"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Unset keys keep their defaults.
	cfg := Default()

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "oneof":
			return fmt.Errorf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
		case "required", "required_if":
			return fmt.Errorf("%s is required", key)
		default:
			return fmt.Errorf("%s failed %q", key, fe.Tag())
		}
	}
	return err
}

// Location resolves data.timezone; empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Data.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Data.Timezone)
	if err != nil {
		return nil, fmt.Errorf("data.timezone: %w", err)
	}
	return loc, nil
}

// LoadOptions translates the data section for market.LoadCSV.
func (c *Config) LoadOptions() (market.LoadOptions, error) {
	loc, err := c.Location()
	if err != nil {
		return market.LoadOptions{}, err
	}
	return market.LoadOptions{
		SymbolPrefix:   c.Data.SymbolPrefix,
		DatetimeColumn: c.Data.DatetimeColumn,
		SignalColumn:   c.Data.SignalColumn,
		Location:       loc,
	}, nil
}

// Symbol is the instrument label used in reports.
func (c *Config) Symbol() string {
	switch {
	case c.Data.Symbol != "":
		return c.Data.Symbol
	case c.Data.SymbolPrefix != "":
		return c.Data.SymbolPrefix
	case c.Data.Path != "":
		base := filepath.Base(c.Data.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	default:
		return "UNKNOWN"
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path:           "./data/bars.csv",
			DatetimeColumn: market.ColDatetime,
		},
		Strategy: backtest.DefaultConfig(),
		Sweep: SweepConfig{
			Grid: backtest.Grid{
				RSILong:     []float64{60, 65, 70, 75},
				RSIShort:    []float64{25, 30, 35, 40},
				StopLossPct: []float64{0.005, 0.01, 0.02},
			},
			Top: 10,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./intraday.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
