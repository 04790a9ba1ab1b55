package indicators

import (
	"math"
	"strconv"
)

// Sample is an oscillator reading that may be unavailable, e.g. during
// warmup or when the indicator is undefined for the bar. The zero value
// is unavailable.
type Sample struct {
	v  float64
	ok bool
}

// Some returns an available Sample holding v.
func Some(v float64) Sample {
	return Sample{v: v, ok: true}
}

// None returns an unavailable Sample.
func None() Sample {
	return Sample{}
}

// FromFloat converts a float where NaN or ±Inf marks a missing value.
func FromFloat(v float64) Sample {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return None()
	}
	return Some(v)
}

// FromFloats converts a whole column with FromFloat.
func FromFloats(vs []float64) []Sample {
	out := make([]Sample, len(vs))
	for i, v := range vs {
		out[i] = FromFloat(v)
	}
	return out
}

// Value returns the reading and whether it is available.
func (s Sample) Value() (float64, bool) {
	return s.v, s.ok
}

// Valid reports whether the reading is available.
func (s Sample) Valid() bool {
	return s.ok
}

// Float64 returns the reading, or NaN when unavailable. Only meant for
// export and plotting.
func (s Sample) Float64() float64 {
	if !s.ok {
		return math.NaN()
	}
	return s.v
}

func (s Sample) String() string {
	if !s.ok {
		return "n/a"
	}
	return strconv.FormatFloat(s.v, 'f', 4, 64)
}
