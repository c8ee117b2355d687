// Package sink writes and reads the flat benchmark output file.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

// ErrMalformedLine is returned by ParseLine for lines not in trial format.
var ErrMalformedLine = errors.New("malformed benchmark line")

// FormatLine renders one trial as
// "Query<N>  Temporal_Range  <trg>  Spatial_Range  <srg|NA>  Time <ms>  Memory  <MB>\n".
func FormatLine(t execution.Trial) string {
	return fmt.Sprintf("%s  Temporal_Range  %d  Spatial_Range  %s  Time %s  Memory  %s\n",
		t.Query, t.TemporalRange, t.SpatialLabel(), formatNumber(t.ElapsedMs), formatNumber(t.MemoryMB))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Writer appends trial lines to an underlying writer. It is safe for
// concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewWriter wraps w. Close is a no-op unless w is also an io.Closer.
func NewWriter(w io.Writer) *Writer {
	c, _ := w.(io.Closer)
	return &Writer{w: w, c: c}
}

// Create truncates (or creates) path and returns a writer over it.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create benchmark output %s: %w", path, err)
	}
	return NewWriter(f), nil
}

// Write appends one line for t.
func (w *Writer) Write(t execution.Trial) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, FormatLine(t)); err != nil {
		return fmt.Errorf("write trial line: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (w *Writer) Close() error {
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// ParseLine reads a line produced by FormatLine. Whitespace runs between
// fields are not significant.
func ParseLine(line string) (execution.Trial, error) {
	f := strings.Fields(line)
	if len(f) != 9 || !strings.HasPrefix(f[0], "Query") ||
		f[1] != "Temporal_Range" || f[3] != "Spatial_Range" || f[5] != "Time" || f[7] != "Memory" {
		return execution.Trial{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	trg, err := strconv.Atoi(f[2])
	if err != nil {
		return execution.Trial{}, fmt.Errorf("%w: temporal range %q", ErrMalformedLine, f[2])
	}
	t := execution.Trial{Query: f[0], TemporalRange: trg}

	if f[4] != "NA" {
		srg, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return execution.Trial{}, fmt.Errorf("%w: spatial range %q", ErrMalformedLine, f[4])
		}
		t.SpatialRange = execution.Fraction(srg)
	}
	if t.ElapsedMs, err = strconv.ParseFloat(f[6], 64); err != nil {
		return execution.Trial{}, fmt.Errorf("%w: time %q", ErrMalformedLine, f[6])
	}
	if t.MemoryMB, err = strconv.ParseFloat(f[8], 64); err != nil {
		return execution.Trial{}, fmt.Errorf("%w: memory %q", ErrMalformedLine, f[8])
	}
	return t, nil
}

// ReadAll parses every non-blank line of r. Lines that are not trial lines
// are skipped and counted.
func ReadAll(r io.Reader) ([]execution.Trial, int, error) {
	var trials []execution.Trial
	skipped := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		t, err := ParseLine(line)
		if err != nil {
			skipped++
			continue
		}
		trials = append(trials, t)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read benchmark output: %w", err)
	}
	return trials, skipped, nil
}
