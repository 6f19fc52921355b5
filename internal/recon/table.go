package recon

import (
	"fmt"
	"sort"
)

// ErrUnknownColumn is wrapped by lookups against a column the table does not
// carry. Predicate evaluation must fail loudly on it rather than defaulting.
var ErrUnknownColumn = fmt.Errorf("recon: unknown column")

// Table is an ordered set of named columns over a fixed row count. The merge
// engine builds one and later stages only append columns, never mutate or
// reorder rows.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value
}

// NewTable creates an empty table with the given column order.
func NewTable(cols ...string) *Table {
	t := &Table{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		t.cols = append(t.cols, c)
		t.index[c] = len(t.cols) - 1
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

// AppendRow adds one row; the value count must match the column count.
func (t *Table) AppendRow(vals ...Value) error {
	if len(vals) != len(t.cols) {
		return fmt.Errorf("recon: row has %d values for %d columns", len(vals), len(t.cols))
	}
	row := make([]Value, len(vals))
	copy(row, vals)
	t.rows = append(t.rows, row)
	return nil
}

// At returns the cell at (row, col).
func (t *Table) At(row int, col string) (Value, error) {
	i, ok := t.index[col]
	if !ok {
		return Value{}, fmt.Errorf("%w %q", ErrUnknownColumn, col)
	}
	return t.rows[row][i], nil
}

// Set overwrites the cell at (row, col). Only the merge engine uses it while
// a table is still being built.
func (t *Table) Set(row int, col string, v Value) error {
	i, ok := t.index[col]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownColumn, col)
	}
	t.rows[row][i] = v
	return nil
}

// AddColumn appends a fully populated column.
func (t *Table) AddColumn(name string, vals []Value) error {
	if t.HasColumn(name) {
		return fmt.Errorf("recon: column %q already exists", name)
	}
	if len(vals) != len(t.rows) {
		return fmt.Errorf("recon: column %q has %d values for %d rows", name, len(vals), len(t.rows))
	}
	t.cols = append(t.cols, name)
	t.index[name] = len(t.cols) - 1
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], vals[i])
	}
	return nil
}

// SortByColumn stable-sorts the rows by one column.
func (t *Table) SortByColumn(name string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownColumn, name)
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		return t.rows[a][i].Less(t.rows[b][i])
	})
	return nil
}

// Filter returns a new table holding only the rows keep reports true for.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := NewTable(t.cols...)
	for i := range t.rows {
		if keep(i) {
			row := make([]Value, len(t.rows[i]))
			copy(row, t.rows[i])
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// Equal reports whether two tables have identical columns and cells. Used by
// idempotence checks in tests.
func (t *Table) Equal(o *Table) bool {
	if len(t.cols) != len(o.cols) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.cols {
		if t.cols[i] != o.cols[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			a, b := t.rows[i][j], o.rows[i][j]
			if a.IsNull() != b.IsNull() {
				return false
			}
			if !a.IsNull() && !a.Equal(b) {
				return false
			}
		}
	}
	return true
}
