package market

import (
	"bytes"
	"compress/gzip"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

const prefixedCSV = `datetime,KQ.m@SHFE.rb.open,KQ.m@SHFE.rb.high,KQ.m@SHFE.rb.low,KQ.m@SHFE.rb.close,KQ.m@SHFE.rb.volume,KQ.m@SHFE.rb.close_oi,RSI14
2024-01-02 09:05:00.000000000,3801,3810,3799,3805,120,1000,
2024-01-02 09:00:00.000000000,3800,3806,3795,3801,100,990,55.5
2024-01-03 09:00:00.000000000,3805,3812,3800,3811,90,1001,71.25
`

func TestReadCSVPrefixed(t *testing.T) {
	t.Parallel()

	l, err := ReadCSV(strings.NewReader(prefixedCSV), LoadOptions{
		SymbolPrefix: "KQ.m@SHFE.rb",
		SignalColumn: "RSI14",
	})
	require.NoError(t, err)

	bs := l.Bars
	require.Equal(t, 3, bs.Len())
	assert.Equal(t, "KQ.m@SHFE.rb", bs.Symbol)

	// sorted ascending; signal follows its row
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), bs.Bars[0].Time)
	assert.Equal(t, 3800.0, bs.Bars[0].Open)
	assert.Equal(t, 3801.0, bs.Bars[0].Close)
	assert.Equal(t, 100.0, bs.Bars[0].Volume)
	assert.Equal(t, 990.0, bs.Bars[0].OpenInterest)
	assert.InDelta(t, 55.5, l.Signal[0], 1e-9)
	assert.True(t, math.IsNaN(l.Signal[1]))
	assert.InDelta(t, 71.25, l.Signal[2], 1e-9)

	assert.False(t, bs.LastOfDay(0))
	assert.True(t, bs.LastOfDay(1))
	assert.True(t, bs.LastOfDay(2))

	assert.Equal(t, "KQ.m@SHFE.rb.close", l.Columns[ColClose])
}

func TestReadCSVMissingColumns(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(strings.NewReader(prefixedCSV), LoadOptions{SymbolPrefix: "KQ.m@SHFE.hc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "open, high, low, close")
	assert.Contains(t, err.Error(), "KQ.m@SHFE.hc")
}

func TestReadCSVMissingSignalColumn(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(strings.NewReader(prefixedCSV), LoadOptions{
		SymbolPrefix: "KQ.m@SHFE.rb",
		SignalColumn: "RSI7",
	})
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestReadCSVPlainHeadersAndBOM(t *testing.T) {
	t.Parallel()

	data := "\ufeffdatetime,Open,High,Low,Close\n2024-01-02T09:00:00Z,1,2,0.5,1.5\n"
	l, err := ReadCSV(strings.NewReader(data), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.5, l.Bars.Bars[0].Close)
	assert.Nil(t, l.Signal)
}

func TestReadCSVUTF16(t *testing.T) {
	t.Parallel()

	src := "datetime,open,high,low,close\n2024-01-02 09:00:00,1,2,0.5,1.5\n"
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, r := range src {
		buf.WriteByte(byte(r))
		buf.WriteByte(0)
	}

	l, err := ReadCSV(&buf, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.5, l.Bars.Bars[0].Close)
}

func TestReadCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrNoBars},
		{"header only", "datetime,open,high,low,close\n", ErrNoBars},
		{"bad price", "datetime,open,high,low,close\n2024-01-02 09:00:00,x,2,1,1\n", ErrBadBar},
		{"bad time", "datetime,open,high,low,close\nyesterday,1,2,1,1\n", ErrBadBar},
		{"duplicate", "datetime,open,high,low,close\n2024-01-02 09:00:00,1,2,1,1\n2024-01-02 09:00:00,1,2,1,1\n", ErrNotMonotonic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), LoadOptions{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadCSVLocation(t *testing.T) {
	t.Parallel()

	shanghai := time.FixedZone("CST", 8*60*60)
	data := "datetime,open,high,low,close\n2024-01-02T23:30:00Z,1,2,1,1\n"

	l, err := ReadCSV(strings.NewReader(data), LoadOptions{Location: shanghai})
	require.NoError(t, err)
	// 23:30 UTC is 07:30 next morning in UTC+8
	assert.Equal(t, Date{2024, time.January, 3}, l.Bars.Bars[0].Date)
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-01-02 09:30:00",
		"2024-01-02 09:30:00.000000000",
		"2024-01-02T09:30:00",
		"2024-01-02T09:30:00Z",
		"2024/01/02 09:30",
		"1704187800",
		"1704187800000",
		"1704187800000000000",
	} {
		got, err := ParseTime(s, time.UTC)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s -> %s", s, got)
	}
}

func TestParseTimeDigits(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1709544600", at},
		{"1709544600000", at},
		{"1709544600000000", at},
		{"1709544600000000000", at},
		{"20240304", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"202403040930", at},
		{"20240304093000", at},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, time.UTC)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"0", "86400", "99999999999999999"} {
		_, err := ParseTime(bad, time.UTC)
		assert.ErrorIs(t, err, ErrBadBar, bad)
	}
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(prefixedCSV), 0o644))

	l, err := LoadCSV(path, LoadOptions{SymbolPrefix: "KQ.m@SHFE.rb"})
	require.NoError(t, err)
	assert.Equal(t, path, l.Bars.Source)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), LoadOptions{})
	assert.Error(t, err)
}

func TestLoadCSVCompressed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := LoadOptions{SymbolPrefix: "KQ.m@SHFE.rb"}

	write := func(name string, wrap func(io.Writer) (io.WriteCloser, error)) string {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		w, err := wrap(f)
		require.NoError(t, err)
		_, err = io.WriteString(w, prefixedCSV)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, f.Close())
		return path
	}

	paths := []string{
		write("bars.csv.gz", func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil }),
		write("bars.csv.xz", func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }),
		write("bars.csv.lzma", func(w io.Writer) (io.WriteCloser, error) { return lzma.NewWriter(w) }),
	}

	plain := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(plain, []byte(prefixedCSV), 0o644))
	want, err := LoadCSV(plain, opts)
	require.NoError(t, err)

	for _, p := range paths {
		l, err := LoadCSV(p, opts)
		require.NoError(t, err, p)
		assert.Equal(t, want.Bars.Bars, l.Bars.Bars, p)
	}

	bad := filepath.Join(dir, "bad.csv.xz")
	require.NoError(t, os.WriteFile(bad, []byte("not xz"), 0o644))
	_, err = LoadCSV(bad, opts)
	assert.Error(t, err)
}
