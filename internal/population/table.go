// Package population owns the state table and vends mediated, typed views
// onto it, per spec §4.4. The table is row-oriented by simulant identifier
// (a dense, monotonically growing integer index); columns are owned by
// exactly one creator and their element type is fixed at first write.
package population

import (
	"fmt"
	"reflect"

	"simulacra/simerr"
)

// Column is one named, typed slice in the state table. Its element type is
// fixed the first time it receives real (non-null-placeholder) data.
type Column struct {
	Name    string
	Creator string
	dtype   reflect.Type
	data    reflect.Value // addressable slice of dtype
}

func newColumn(name, creator string, dtype reflect.Type, n int) *Column {
	data := reflect.MakeSlice(reflect.SliceOf(dtype), n, n)
	return &Column{Name: name, Creator: creator, dtype: dtype, data: data}
}

// Len returns the number of rows currently stored (including untracked
// rows).
func (c *Column) Len() int { return c.data.Len() }

// Dtype returns the column's fixed element type.
func (c *Column) Dtype() reflect.Type { return c.dtype }

// At returns the value at row i as an untyped interface.
func (c *Column) At(i int) interface{} { return c.data.Index(i).Interface() }

func (c *Column) setAt(i int, v interface{}) error {
	val := reflect.ValueOf(v)
	if !val.Type().AssignableTo(c.dtype) {
		if val.Type().ConvertibleTo(c.dtype) {
			val = val.Convert(c.dtype)
		} else {
			return simerr.NewPopulationError(
				fmt.Sprintf("dtype drift: column is %s, value is %s", c.dtype, val.Type()), c.Name)
		}
	}
	c.data.Index(i).Set(val)
	return nil
}

func (c *Column) extend(n int) {
	zero := reflect.Zero(c.dtype)
	grown := reflect.MakeSlice(reflect.SliceOf(c.dtype), c.data.Len()+n, c.data.Len()+n)
	reflect.Copy(grown, c.data)
	for i := c.data.Len(); i < grown.Len(); i++ {
		grown.Index(i).Set(zero)
	}
	c.data = grown
}

// slice returns the raw backing slice as an interface{} (e.g. []float64),
// used by typed accessor helpers in view.go.
func (c *Column) slice() interface{} { return c.data.Interface() }

// Table is the shared, row-oriented state table. It is never accessed
// directly by components; all reads and writes go through a View.
type Table struct {
	columns map[string]*Column
	size    int
	// adding is true only during create_simulants, the short window where
	// rows exist but have not yet been covered by their creator's
	// initializer.
	adding      bool
	addingStart int
}

// NewTable constructs an empty table with the mandatory boolean `tracked`
// column.
func NewTable() *Table {
	t := &Table{columns: make(map[string]*Column)}
	t.columns["tracked"] = newColumn("tracked", "population_manager", reflect.TypeOf(true), 0)
	return t
}

// Size returns the number of rows (simulants) in the table.
func (t *Table) Size() int { return t.size }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// ColumnValue reads row i of the named column directly, bypassing view
// mediation. Used by cross-cutting subsystems (randomness key-tuple
// derivation, result reporting) that need raw reads rather than a
// component-scoped View.
func (t *Table) ColumnValue(name string, row int) interface{} {
	col, ok := t.columns[name]
	if !ok {
		return nil
	}
	return col.At(row)
}

// ColumnNames returns all registered column names.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.columns))
	for n := range t.columns {
		names = append(names, n)
	}
	return names
}

// createColumn registers a new column owned by creator, backfilling
// existing rows with the zero value of dtype. Fails if the column already
// exists with a different creator.
func (t *Table) createColumn(name, creator string, dtype reflect.Type) (*Column, error) {
	if existing, ok := t.columns[name]; ok {
		if existing.Creator != creator {
			return nil, simerr.NewPopulationError("column has a different creator", name)
		}
		return existing, nil
	}
	col := newColumn(name, creator, dtype, t.size)
	t.columns[name] = col
	return col, nil
}

// Extend grows the table by n rows, extending every existing column with
// its dtype's zero value, and marks the new rows as tracked.
func (t *Table) Extend(n int) (start, end int) {
	start = t.size
	for _, col := range t.columns {
		col.extend(n)
	}
	t.size += n
	end = t.size
	trackedCol := t.columns["tracked"]
	for i := start; i < end; i++ {
		_ = trackedCol.setAt(i, true)
	}
	return start, end
}

// BeginCreation marks the table as being in population-creation mode: the
// short window where dtype coercion from a null placeholder is permitted.
func (t *Table) BeginCreation(start int) {
	t.adding = true
	t.addingStart = start
}

// EndCreation clears population-creation mode.
func (t *Table) EndCreation() { t.adding = false }

// Adding reports whether the table is currently in population-creation
// mode.
func (t *Table) Adding() bool { return t.adding }
