package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Canonical column names understood by the loader.
const (
	ColDatetime = "datetime"
	ColOpen     = "open"
	ColHigh     = "high"
	ColLow      = "low"
	ColClose    = "close"
	ColVolume   = "volume"
	ColOpenOI   = "open_oi"
	ColCloseOI  = "close_oi"
)

var renamable = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume, ColOpenOI, ColCloseOI}

// LoadOptions controls how a bar CSV is mapped onto canonical fields.
type LoadOptions struct {
	// SymbolPrefix is stripped from "<prefix>.<field>" headers, e.g. "KQ.m@SHFE.rb".
	SymbolPrefix string

	// DatetimeColumn defaults to "datetime".
	DatetimeColumn string

	// SignalColumn optionally names a precomputed oscillator column
	// returned aligned with the bars.
	SignalColumn string

	// Location is used for timestamps without a zone and for calendar
	// dates. Defaults to UTC.
	Location *time.Location
}

// Loaded is the result of reading a bar CSV.
type Loaded struct {
	Bars *BarSet

	// Signal holds the SignalColumn values aligned with Bars.Bars,
	// NaN where the cell was empty or not a number. Nil if no
	// SignalColumn was requested.
	Signal []float64

	// Columns maps canonical names to the header they were read from.
	Columns map[string]string
}

// LoadCSV opens path and reads bars from it. Files ending in .gz, .xz or
// .lzma are decompressed.
func LoadCSV(path string, opts LoadOptions) (*Loaded, error) {
	f, err := openBars(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	l.Bars.Source = path
	return l, nil
}

// ReadCSV reads a headered bar CSV. Input may be UTF-8 (with or without
// BOM) or BOM-marked UTF-16. Rows are sorted ascending by timestamp;
// duplicate timestamps are rejected.
func ReadCSV(r io.Reader, opts LoadOptions) (*Loaded, error) {
	if opts.DatetimeColumn == "" {
		opts.DatetimeColumn = ColDatetime
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoBars
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, cols, err := mapColumns(header, opts)
	if err != nil {
		return nil, err
	}

	type row struct {
		bar Bar
		sig float64
	}
	var rows []row

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		b, err := parseBarRow(rec, idx, opts.Location)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		sig := math.NaN()
		if i, ok := idx[opts.SignalColumn]; ok && opts.SignalColumn != "" {
			sig = parseOptionalFloat(cell(rec, i))
		}
		rows = append(rows, row{bar: b, sig: sig})
	}

	if len(rows) == 0 {
		return nil, ErrNoBars
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].bar.Time.Before(rows[j].bar.Time)
	})

	bars := make([]Bar, len(rows))
	var signal []float64
	if opts.SignalColumn != "" {
		signal = make([]float64, len(rows))
	}
	for i, r := range rows {
		bars[i] = r.bar
		if signal != nil {
			signal[i] = r.sig
		}
	}

	bs, err := NewBarSet(opts.SymbolPrefix, bars)
	if err != nil {
		return nil, err
	}
	return &Loaded{Bars: bs, Signal: signal, Columns: cols}, nil
}

// mapColumns normalizes headers to canonical names and checks the required
// ones are present. A prefixed header wins over a bare one.
func mapColumns(header []string, opts LoadOptions) (map[string]int, map[string]string, error) {
	idx := make(map[string]int)
	cols := make(map[string]string)
	prefixed := make(map[string]bool)

	for i, h := range header {
		name := strings.TrimSpace(h)

		if name == opts.DatetimeColumn {
			idx[ColDatetime] = i
			cols[ColDatetime] = name
			continue
		}
		if opts.SignalColumn != "" && name == opts.SignalColumn {
			idx[opts.SignalColumn] = i
			cols[opts.SignalColumn] = name
			continue
		}

		canon, isPrefixed := normalizeHeader(name, opts.SymbolPrefix)
		if canon == "" {
			continue
		}
		if _, seen := idx[canon]; seen && prefixed[canon] && !isPrefixed {
			continue
		}
		idx[canon] = i
		cols[canon] = name
		prefixed[canon] = isPrefixed
	}

	var missing []string
	for _, req := range []string{ColDatetime, ColOpen, ColHigh, ColLow, ColClose} {
		if _, ok := idx[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s (symbol_prefix=%q)", ErrMissingColumns, strings.Join(missing, ", "), opts.SymbolPrefix)
	}
	if opts.SignalColumn != "" {
		if _, ok := idx[opts.SignalColumn]; !ok {
			return nil, nil, fmt.Errorf("%w: signal column %q", ErrMissingColumns, opts.SignalColumn)
		}
	}
	return idx, cols, nil
}

func normalizeHeader(name, prefix string) (canon string, isPrefixed bool) {
	if prefix != "" && strings.HasPrefix(name, prefix+".") {
		field := strings.ToLower(strings.TrimPrefix(name, prefix+"."))
		for _, c := range renamable {
			if field == c {
				return c, true
			}
		}
		return "", false
	}
	lower := strings.ToLower(name)
	for _, c := range renamable {
		if lower == c {
			return c, false
		}
	}
	return "", false
}

func parseBarRow(rec []string, idx map[string]int, loc *time.Location) (Bar, error) {
	t, err := ParseTime(cell(rec, idx[ColDatetime]), loc)
	if err != nil {
		return Bar{}, err
	}

	var b Bar
	b.Time = t
	b.Date = DateOf(t)

	for _, f := range []struct {
		col string
		dst *float64
	}{
		{ColOpen, &b.Open},
		{ColHigh, &b.High},
		{ColLow, &b.Low},
		{ColClose, &b.Close},
	} {
		s := cell(rec, idx[f.col])
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("%w: bad %s %q", ErrBadBar, f.col, s)
		}
		*f.dst = v
	}

	if i, ok := idx[ColVolume]; ok {
		b.Volume = zeroIfNaN(parseOptionalFloat(cell(rec, i)))
	}
	if i, ok := idx[ColCloseOI]; ok {
		b.OpenInterest = zeroIfNaN(parseOptionalFloat(cell(rec, i)))
	} else if i, ok := idx[ColOpenOI]; ok {
		b.OpenInterest = zeroIfNaN(parseOptionalFloat(cell(rec, i)))
	}
	return b, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
}

// All-digit calendar stamps, keyed by length. They are tried before the
// epoch interpretation.
var compactLayouts = map[int]string{
	8:  "20060102",
	12: "200601021504",
	14: "20060102150405",
}

// Epoch values outside these years are rejected rather than guessed.
const (
	minEpochYear = 1971
	maxEpochYear = 2200
)

// ParseTime parses the timestamp formats found in exported bar files.
// Zone-less values are interpreted in loc; RFC3339 values keep their
// offset and are converted to loc. All-digit values are compact dates
// (YYYYMMDD, YYYYMMDDhhmm, YYYYMMDDhhmmss) when they parse as such, else
// epoch seconds, milliseconds, microseconds or nanoseconds depending on
// magnitude.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty datetime", ErrBadBar)
	}
	if loc == nil {
		loc = time.UTC
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if layout, ok := compactLayouts[len(s)]; ok {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, nil
			}
		}

		var t time.Time
		switch {
		case n > 1e17:
			t = time.Unix(0, n)
		case n > 1e14:
			t = time.UnixMicro(n)
		case n > 1e11:
			t = time.UnixMilli(n)
		default:
			t = time.Unix(n, 0)
		}
		if y := t.Year(); y < minEpochYear || y > maxEpochYear {
			return time.Time{}, fmt.Errorf("%w: epoch %q is out of range (year %d)", ErrBadBar, s, y)
		}
		return t.In(loc), nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad datetime %q", ErrBadBar, s)
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseOptionalFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
