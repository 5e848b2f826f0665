// Package artifact implements the content-addressable key/value store the
// core consumes for simulation inputs, per spec §6: hierarchical keys of
// the form "type.name.measure" or "type.measure", loaded and filtered with
// the same filter-term language PopulationView queries use.
package artifact

import (
	"simulacra/internal/query"
)

// Frame is a minimal tabular value an artifact can hold: column name to a
// same-length slice of values, plus the row count (kept explicit so an
// empty frame with zero rows still carries its schema across a round trip).
type Frame struct {
	Columns map[string][]interface{}
	Rows    int
}

// ColumnNames returns the frame's column names.
func (f *Frame) ColumnNames() []string {
	names := make([]string, 0, len(f.Columns))
	for n := range f.Columns {
		names = append(names, n)
	}
	return names
}

func (f *Frame) row(i int) query.Row {
	return func(column string) (interface{}, bool) {
		col, ok := f.Columns[column]
		if !ok || i >= len(col) {
			return nil, false
		}
		return col[i], true
	}
}

// Filter applies a filter-term expression to the frame, dropping terms that
// reference columns the frame does not have (per spec §6's recovery rule)
// and returning a new frame containing only the matching rows.
func (f *Frame) Filter(filterExpr string) *Frame {
	known := make(map[string]bool, len(f.Columns))
	for name := range f.Columns {
		known[name] = true
	}
	expr := query.Parse(filterExpr).DropUnknownColumns(known)

	keep := make([]int, 0, f.Rows)
	for i := 0; i < f.Rows; i++ {
		if expr.Eval(f.row(i)) {
			keep = append(keep, i)
		}
	}
	out := &Frame{Columns: make(map[string][]interface{}, len(f.Columns)), Rows: len(keep)}
	for name, col := range f.Columns {
		newCol := make([]interface{}, len(keep))
		for j, i := range keep {
			newCol[j] = col[i]
		}
		out.Columns[name] = newCol
	}
	return out
}

// Value is whatever Load/Write exchange: a Frame for tabular artifacts, or
// any scalar/blob for a single-value artifact.
type Value interface{}

// Store is the two-operation interface the core consumes.
type Store interface {
	Load(key string, filters string) (Value, error)
	Write(key string, value Value) error
}
