package backtest

import "errors"

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("backtest: invalid config")

	// ErrNoBars is returned when the engine is given no bars.
	ErrNoBars = errors.New("backtest: no bars")

	// ErrSignalLength is returned when the oscillator series is not aligned with the bars.
	ErrSignalLength = errors.New("backtest: signal length does not match bars")

	// ErrSignalRange is returned for an oscillator reading outside [0,100].
	ErrSignalRange = errors.New("backtest: signal out of range")

	// ErrNotRun is returned when results are requested before Run.
	ErrNotRun = errors.New("backtest: not yet run")
)
