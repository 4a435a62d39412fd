// Package dataset implements the OHLCV feature-engineering pipeline: a small
// column-ordered numeric frame, technical indicators, cross/pattern signals
// and forward-looking signal labels.
package dataset

import (
	"fmt"
	"math"
	"time"
)

// Frame is a time-ordered table of float64 columns aligned on timestamps.
// Undefined cells (indicator warm-up, lag shifts, incomplete forward
// windows) are represented as NaN. Columns keep their insertion order so
// derived matrices are deterministic.
type Frame struct {
	timestamps []time.Time
	order      []string
	columns    map[string][]float64
}

// NewFrame creates an empty frame over the given timestamps.
func NewFrame(timestamps []time.Time) *Frame {
	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	return &Frame{
		timestamps: ts,
		columns:    make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.timestamps)
}

// Timestamps returns a copy of the row timestamps.
func (f *Frame) Timestamps() []time.Time {
	ts := make([]time.Time, len(f.timestamps))
	copy(ts, f.timestamps)
	return ts
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.order))
	copy(names, f.order)
	return names
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// AddColumn adds or replaces a column. The values slice is copied.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.timestamps) {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), len(f.timestamps))
	}
	if _, exists := f.columns[name]; !exists {
		f.order = append(f.order, name)
	}
	stored := make([]float64, len(values))
	copy(stored, values)
	f.columns[name] = stored
	return nil
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	values, ok := f.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}

// Value returns a single cell.
func (f *Frame) Value(name string, row int) (float64, error) {
	values, ok := f.columns[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	if row < 0 || row >= len(values) {
		return 0, fmt.Errorf("row %d out of range [0,%d)", row, len(values))
	}
	return values[row], nil
}

// Select returns a new frame containing only the named columns, in the
// given order.
func (f *Frame) Select(names []string) (*Frame, error) {
	out := NewFrame(f.timestamps)
	for _, name := range names {
		values, ok := f.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		if err := out.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Slice returns a new frame containing rows [from, to).
func (f *Frame) Slice(from, to int) *Frame {
	if from < 0 {
		from = 0
	}
	if to > f.Len() {
		to = f.Len()
	}
	if from > to {
		from = to
	}
	out := NewFrame(f.timestamps[from:to])
	for _, name := range f.order {
		_ = out.AddColumn(name, f.columns[name][from:to])
	}
	return out
}

// DropNaN returns a new frame with every row containing a NaN removed.
func (f *Frame) DropNaN() *Frame {
	keep := make([]int, 0, f.Len())
	for row := 0; row < f.Len(); row++ {
		valid := true
		for _, name := range f.order {
			if math.IsNaN(f.columns[name][row]) {
				valid = false
				break
			}
		}
		if valid {
			keep = append(keep, row)
		}
	}

	timestamps := make([]time.Time, len(keep))
	for i, row := range keep {
		timestamps[i] = f.timestamps[row]
	}
	out := NewFrame(timestamps)
	for _, name := range f.order {
		src := f.columns[name]
		values := make([]float64, len(keep))
		for i, row := range keep {
			values[i] = src[row]
		}
		_ = out.AddColumn(name, values)
	}
	return out
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := NewFrame(f.timestamps)
	for _, name := range f.order {
		_ = out.AddColumn(name, f.columns[name])
	}
	return out
}

// Matrix returns the named columns as a row-major matrix.
func (f *Frame) Matrix(names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		values, ok := f.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[i] = values
	}
	rows := make([][]float64, f.Len())
	for r := 0; r < f.Len(); r++ {
		row := make([]float64, len(names))
		for c := range names {
			row[c] = cols[c][r]
		}
		rows[r] = row
	}
	return rows, nil
}

// Shift returns a copy of values shifted forward by lag rows. The first lag
// cells become NaN. A negative lag shifts backwards, leaving NaN at the tail.
func Shift(values []float64, lag int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		src := i - lag
		if src < 0 || src >= len(values) {
			out[i] = math.NaN()
		} else {
			out[i] = values[src]
		}
	}
	return out
}

// Merge joins another frame's columns into f on exact timestamp equality.
// Rows of f with no counterpart in other get NaN for the merged columns.
func (f *Frame) Merge(other *Frame) error {
	index := make(map[int64]int, other.Len())
	for i, ts := range other.timestamps {
		index[ts.Unix()] = i
	}
	for _, name := range other.order {
		src := other.columns[name]
		values := make([]float64, f.Len())
		for i, ts := range f.timestamps {
			if j, ok := index[ts.Unix()]; ok {
				values[i] = src[j]
			} else {
				values[i] = math.NaN()
			}
		}
		if err := f.AddColumn(name, values); err != nil {
			return err
		}
	}
	return nil
}
