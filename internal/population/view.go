package population

import (
	"reflect"
	"sort"

	"simulacra/internal/query"
	"simulacra/simerr"
)

// Frame is the immutable result of View.Get: a column-subset, row-filtered
// snapshot of the state table at a point in time.
type Frame struct {
	index   []int
	columns map[string]*Column
}

// Index returns the simulant row numbers included in the frame, in order.
func (f *Frame) Index() []int { return append([]int(nil), f.index...) }

// Len returns the number of rows in the frame.
func (f *Frame) Len() int { return len(f.index) }

// ColumnNames returns the names of columns present in the frame.
func (f *Frame) ColumnNames() []string {
	names := make([]string, 0, len(f.columns))
	for n := range f.columns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Float64 returns the named column's values for the frame's rows. Returns an
// error if the column is not float64-typed or not present.
func (f *Frame) Float64(name string) ([]float64, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, simerr.NewPopulationError("unknown column in frame", name)
	}
	out := make([]float64, len(f.index))
	for i, row := range f.index {
		v, ok := col.At(row).(float64)
		if !ok {
			return nil, simerr.NewPopulationError("column is not float64", name)
		}
		out[i] = v
	}
	return out, nil
}

// Int64 returns the named column's values for the frame's rows.
func (f *Frame) Int64(name string) ([]int64, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, simerr.NewPopulationError("unknown column in frame", name)
	}
	out := make([]int64, len(f.index))
	for i, row := range f.index {
		v, ok := col.At(row).(int64)
		if !ok {
			return nil, simerr.NewPopulationError("column is not int64", name)
		}
		out[i] = v
	}
	return out, nil
}

// String returns the named column's values for the frame's rows.
func (f *Frame) String(name string) ([]string, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, simerr.NewPopulationError("unknown column in frame", name)
	}
	out := make([]string, len(f.index))
	for i, row := range f.index {
		v, ok := col.At(row).(string)
		if !ok {
			return nil, simerr.NewPopulationError("column is not string", name)
		}
		out[i] = v
	}
	return out, nil
}

// Bool returns the named column's values for the frame's rows.
func (f *Frame) Bool(name string) ([]bool, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, simerr.NewPopulationError("unknown column in frame", name)
	}
	out := make([]bool, len(f.index))
	for i, row := range f.index {
		v, ok := col.At(row).(bool)
		if !ok {
			return nil, simerr.NewPopulationError("column is not bool", name)
		}
		out[i] = v
	}
	return out, nil
}

// At returns the raw value of column name at the i-th row of the frame.
func (f *Frame) At(name string, i int) (interface{}, bool) {
	col, ok := f.columns[name]
	if !ok {
		return nil, false
	}
	return col.At(f.index[i]), true
}

// Delta is a single-column or multi-column update payload for View.Update.
type Delta struct {
	// Index names the absolute table row numbers being written. Must be a
	// subset of the current table index.
	Index []int
	// Values maps column name to a same-length slice of new values
	// (elements must be assignable or convertible to that column's
	// established dtype, or the column's first-ever values if it is being
	// created here).
	Values map[string]interface{}
}

// SingleColumnDelta constructs a Delta for one column.
func SingleColumnDelta(index []int, column string, values interface{}) Delta {
	return Delta{Index: index, Values: map[string]interface{}{column: values}}
}

// View is a mediated handle onto a subset of the state table, scoped to one
// owning component, per spec §4.4.
type View struct {
	table         *Table
	component     string
	id            string
	columns       []string // empty => all columns
	defaultQuery  string
	writable      map[string]bool // columns this component created
	columnDtypes  map[string]reflect.Type
}

// NewView constructs a view. Its writable set (the private column set
// enforced by Update) is the subset of columns that already exist with
// component as their creator; a column the view's component creates later
// through Update is added to it then.
func (m *Manager) NewView(component, id string, columns []string, defaultQuery string) *View {
	writable := make(map[string]bool, len(columns))
	for _, c := range columns {
		if col, ok := m.table.columns[c]; ok && col.Creator == component {
			writable[c] = true
		}
	}
	return &View{table: m.table, component: component, id: id, columns: columns, defaultQuery: defaultQuery, writable: writable}
}

// Get returns the view's columns, filtered by the conjunction of query, the
// view's default query, and (if excludeUntracked) tracked == true.
func (v *View) Get(extraQuery string, excludeUntracked bool) (*Frame, error) {
	names := v.columns
	if len(names) == 0 {
		names = v.table.ColumnNames()
	}
	cols := make(map[string]*Column, len(names))
	for _, n := range names {
		col, ok := v.table.columns[n]
		if !ok {
			return nil, simerr.NewPopulationError("view requested missing column", n)
		}
		cols[n] = col
	}

	var exprs []query.Expr
	if v.defaultQuery != "" {
		exprs = append(exprs, query.Parse(v.defaultQuery))
	}
	if extraQuery != "" {
		exprs = append(exprs, query.Parse(extraQuery))
	}

	index := make([]int, 0, v.table.size)
	for row := 0; row < v.table.size; row++ {
		if excludeUntracked {
			tracked, _ := v.table.columns["tracked"].At(row).(bool)
			if !tracked {
				continue
			}
		}
		if !v.matches(row, exprs) {
			continue
		}
		index = append(index, row)
	}
	return &Frame{index: index, columns: cols}, nil
}

func (v *View) matches(row int, exprs []query.Expr) bool {
	rowFn := func(column string) (interface{}, bool) {
		col, ok := v.table.columns[column]
		if !ok {
			return nil, false
		}
		return col.At(row), true
	}
	for _, e := range exprs {
		if !e.Eval(rowFn) {
			return false
		}
	}
	return true
}

// Update applies delta to the table. See spec §4.4 for the five checked
// preconditions this enforces.
func (v *View) Update(delta Delta) error {
	if len(delta.Values) == 0 {
		return simerr.NewPopulationError("update delta has no columns", "")
	}
	for name := range delta.Values {
		if v.writable[name] {
			continue
		}
		if _, exists := v.table.columns[name]; exists || !v.table.adding {
			return simerr.NewPopulationError("update targets a column outside the view's writable set", name)
		}
	}
	for _, row := range delta.Index {
		if row < 0 || row >= v.table.size {
			return simerr.NewPopulationError("update index is not a subset of the table index", "")
		}
	}
	for name, values := range delta.Values {
		col, exists := v.table.columns[name]
		rv := reflect.ValueOf(values)
		if rv.Kind() != reflect.Slice || rv.Len() != len(delta.Index) {
			return simerr.NewPopulationError("update values length does not match index length", name)
		}
		elemType := rv.Type().Elem()
		if !exists {
			if !v.table.adding {
				return simerr.NewPopulationError("update targets a column with no initializer", name)
			}
			var err error
			col, err = v.table.createColumn(name, v.component, elemType)
			if err != nil {
				return err
			}
			v.writable[name] = true
		}
		for i, row := range delta.Index {
			val := rv.Index(i).Interface()
			if err := col.setAt(row, val); err != nil {
				return err
			}
		}
	}
	return nil
}
