// Package tabular holds the in-memory column-oriented input handed to the loader.
package tabular

import "github.com/pkg/errors"

// Column is a named, ordered sequence of scalar values.
type Column struct {
	Name   string
	Values []any
}

// Frame is an ordered set of row-aligned columns.
type Frame struct {
	Columns []Column
}

// New creates an empty frame with the given column names.
func New(names ...string) *Frame {
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name}
	}
	return &Frame{Columns: cols}
}

// FromRows builds a frame from row-major data. Every row must have exactly
// len(names) values.
func FromRows(names []string, rows [][]any) (*Frame, error) {
	f := New(names...)
	for i := range f.Columns {
		f.Columns[i].Values = make([]any, 0, len(rows))
	}
	for i, row := range rows {
		if err := f.Append(row...); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
	}
	return f, nil
}

// Append adds one row to the frame.
func (f *Frame) Append(values ...any) error {
	if len(values) != len(f.Columns) {
		return errors.Errorf("row has %d values, frame has %d columns", len(values), len(f.Columns))
	}
	for i, v := range values {
		f.Columns[i].Values = append(f.Columns[i].Values, v)
	}
	return nil
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// Width is the number of columns.
func (f *Frame) Width() int { return len(f.Columns) }

// Len is the number of rows, taken from the first column.
func (f *Frame) Len() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return len(f.Columns[0].Values)
}

// Aligned reports whether every column holds the same number of values.
func (f *Frame) Aligned() bool {
	n := f.Len()
	for _, c := range f.Columns {
		if len(c.Values) != n {
			return false
		}
	}
	return true
}

// Row appends the normalized values of row i to dst and returns it.
func (f *Frame) Row(i int, dst []any) []any {
	for _, c := range f.Columns {
		dst = append(dst, Normalize(c.Values[i]))
	}
	return dst
}
