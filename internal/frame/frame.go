// Package frame provides a small column-indexed tabular value used to carry
// extracts between the resolver, the transforms, the validator, and the
// loader. It is deliberately minimal: named columns, untyped cells, and the
// handful of operations the integration core needs.
package frame

import (
	"math"
	"strconv"
	"strings"

	"barrio-etl/internal/domain"
)

// Frame is an ordered set of named columns over zero or more rows.
// Cells hold string, int64, or float64 values; nil marks a missing cell.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates an empty frame with the given column set.
func New(cols ...string) (*Frame, error) {
	if len(cols) == 0 {
		return nil, domain.ErrValidation("frame requires at least one column")
	}
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c == "" {
			return nil, domain.ErrValidation("frame column %d has empty name", i)
		}
		if _, dup := index[c]; dup {
			return nil, domain.ErrValidation("duplicate frame column %q", c)
		}
		index[c] = i
	}
	return &Frame{cols: append([]string(nil), cols...), index: index}, nil
}

// Columns returns the column names in declaration order.
func (f *Frame) Columns() []string { return append([]string(nil), f.cols...) }

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return len(f.rows) }

// Empty reports whether the frame has zero rows.
func (f *Frame) Empty() bool { return len(f.rows) == 0 }

// AppendRow appends one row. The value count must match the column count.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.cols) {
		return domain.ErrValidation("row has %d values, frame has %d columns", len(values), len(f.cols))
	}
	f.rows = append(f.rows, append([]any(nil), values...))
	return nil
}

// At returns the cell at (row, column).
func (f *Frame) At(row int, column string) (any, error) {
	i, ok := f.index[column]
	if !ok {
		return nil, domain.ErrValidation("column %q does not exist in frame", column)
	}
	if row < 0 || row >= len(f.rows) {
		return nil, domain.ErrValidation("row %d out of range (%d rows)", row, len(f.rows))
	}
	return f.rows[row][i], nil
}

// Row returns the raw cell slice for a row. Callers must not mutate it.
func (f *Frame) Row(row int) []any { return f.rows[row] }

// Values returns all cells of one column in row order.
func (f *Frame) Values(column string) ([]any, error) {
	i, ok := f.index[column]
	if !ok {
		return nil, domain.ErrValidation("column %q does not exist in frame", column)
	}
	out := make([]any, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out, nil
}

// FilterRows returns a new frame containing only rows for which keep is
// true. Row order is preserved; the column set is shared.
func (f *Frame) FilterRows(keep func(row int) bool) *Frame {
	out := &Frame{cols: f.cols, index: f.index}
	for r := range f.rows {
		if keep(r) {
			out.rows = append(out.rows, f.rows[r])
		}
	}
	return out
}

// AsInt64 coerces a cell value to int64. Strings are parsed; floats must be
// integral. The second return is false when the value does not represent an
// integer key.
func AsInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), true
		}
		return 0, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if fl, err := strconv.ParseFloat(s, 64); err == nil && fl == math.Trunc(fl) {
			return int64(fl), true
		}
		return 0, false
	default:
		return 0, false
	}
}
