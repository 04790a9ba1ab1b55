package market

import "errors"

var (
	// ErrNoBars is returned when a bar sequence is empty.
	ErrNoBars = errors.New("market: no bars")

	// ErrBadBar is returned for a bar with a missing timestamp or non-finite/non-positive price.
	ErrBadBar = errors.New("market: bad bar")

	// ErrNotMonotonic is returned when timestamps are not strictly increasing.
	ErrNotMonotonic = errors.New("market: timestamps not strictly increasing")

	// ErrMissingColumns is returned when required columns are absent after header normalization.
	ErrMissingColumns = errors.New("market: missing required columns")
)
