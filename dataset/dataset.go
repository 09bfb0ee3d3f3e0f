// Package dataset holds raw tabular data: named columns of numbers, strings and
// missing cells, plus readers, writers and the cleaning steps applied before fitting.
package dataset

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Dataset is an ordered sequence of rows over a fixed list of named columns.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty dataset with the given column names.
func New(columns ...string) (*Dataset, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", c)
		}
		index[c] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{columns: cols, index: index}, nil
}

// FromMaps builds a dataset from row maps. Keys absent from a row are missing.
// Values are converted with Of.
func FromMaps(columns []string, rows []map[string]any) (*Dataset, error) {
	ds, err := New(columns...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := ds.AppendMap(r); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// AppendRow appends one row; it must have one value per column.
func (d *Dataset) AppendRow(values []Value) error {
	if len(values) != len(d.columns) {
		return errors.NewDimensionError("Dataset.AppendRow", len(d.columns), len(values), 1)
	}
	row := make([]Value, len(values))
	copy(row, values)
	d.rows = append(d.rows, row)
	return nil
}

// AppendMap appends one row given as column name to value.
func (d *Dataset) AppendMap(m map[string]any) error {
	row := make([]Value, len(d.columns))
	for k, v := range m {
		j, ok := d.index[k]
		if !ok {
			return errors.NewValidationError("row", "unknown column", k)
		}
		row[j] = Of(v)
	}
	d.rows = append(d.rows, row)
	return nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.columns) }

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Has reports whether the dataset has the named column.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Index returns the position of the named column.
func (d *Dataset) Index(name string) (int, bool) {
	j, ok := d.index[name]
	return j, ok
}

// At returns the cell at row i, column j.
func (d *Dataset) At(i, j int) Value { return d.rows[i][j] }

// Get returns the cell at row i of the named column; missing if the column is absent.
func (d *Dataset) Get(i int, name string) Value {
	j, ok := d.index[name]
	if !ok {
		return Missing()
	}
	return d.rows[i][j]
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []Value {
	out := make([]Value, len(d.rows[i]))
	copy(out, d.rows[i])
	return out
}

// Column returns a copy of the named column's values.
func (d *Dataset) Column(name string) ([]Value, error) {
	j, ok := d.index[name]
	if !ok {
		return nil, errors.NewValidationError("column", "no such column", name)
	}
	out := make([]Value, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Select returns a new dataset with only the named columns, in the given order.
func (d *Dataset) Select(cols ...string) (*Dataset, error) {
	idx := make([]int, len(cols))
	for k, c := range cols {
		j, ok := d.index[c]
		if !ok {
			return nil, errors.NewValidationError("columns", "no such column", c)
		}
		idx[k] = j
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(d.rows))
	for i, r := range d.rows {
		row := make([]Value, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// Drop returns a new dataset without the named columns. Every named column must exist.
func (d *Dataset) Drop(cols ...string) (*Dataset, error) {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		if !d.Has(c) {
			return nil, errors.NewValidationError("drop_columns", "no such column", c)
		}
		drop[c] = true
	}
	keep := make([]string, 0, len(d.columns))
	for _, c := range d.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return d.Select(keep...)
}

// AddColumn appends a column. values must have one entry per row.
func (d *Dataset) AddColumn(name string, values []Value) error {
	if d.Has(name) {
		return errors.NewValidationError("column", "duplicate column name", name)
	}
	if len(values) != len(d.rows) {
		return errors.NewDimensionError("Dataset.AddColumn", len(d.rows), len(values), 0)
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, name)
	for i := range d.rows {
		d.rows[i] = append(d.rows[i], values[i])
	}
	return nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out, _ := d.Select(d.columns...)
	return out
}

// String renders the first rows for debugging.
func (d *Dataset) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset(%d rows x %d columns)\n", d.Len(), d.Width())
	b.WriteString(strings.Join(d.columns, "\t"))
	for i := 0; i < d.Len() && i < 5; i++ {
		b.WriteString("\n")
		for j, v := range d.rows[i] {
			if j > 0 {
				b.WriteString("\t")
			}
			b.WriteString(v.String())
		}
	}
	return b.String()
}

func toString(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
