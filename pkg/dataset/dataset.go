package dataset

import (
	"fmt"
	"strings"
)

// Row is a map view of a single dataset row, keyed by column name.
type Row map[string]string

// Dataset is an in-memory table: an ordered list of uniquely named columns
// plus rows of string cells. Every row has exactly one cell per column.
// Values loaded from a source arrive normalized (nulls become empty cells).
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates a Dataset with the given column names. Names must be non-empty
// and unique.
func New(columns []string) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset requires at least one column")
	}

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, exists := index[name]; exists {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
	}

	return &Dataset{
		columns: append([]string(nil), columns...),
		index:   index,
	}, nil
}

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// HasColumn reports whether the dataset has a column with the given name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// AppendRow adds a row of cells. The cell count must match the column count.
func (d *Dataset) AppendRow(cells []string) error {
	if len(cells) != len(d.columns) {
		return fmt.Errorf("row has %d cells, dataset has %d columns", len(cells), len(d.columns))
	}
	d.rows = append(d.rows, append([]string(nil), cells...))
	return nil
}

// Row returns a map view of the row at index i.
func (d *Dataset) Row(i int) (Row, error) {
	if i < 0 || i >= len(d.rows) {
		return nil, fmt.Errorf("row index %d out of range [0, %d)", i, len(d.rows))
	}

	row := make(Row, len(d.columns))
	for j, name := range d.columns {
		row[name] = d.rows[i][j]
	}
	return row, nil
}

// Cell returns the value at row i in the named column.
func (d *Dataset) Cell(i int, column string) (string, error) {
	if i < 0 || i >= len(d.rows) {
		return "", fmt.Errorf("row index %d out of range [0, %d)", i, len(d.rows))
	}
	j, ok := d.index[column]
	if !ok {
		return "", fmt.Errorf("column %q not found", column)
	}
	return d.rows[i][j], nil
}

// Select returns a new Dataset holding only the named columns, in the given
// order. Unknown columns are an error.
func (d *Dataset) Select(columns []string) (*Dataset, error) {
	indices := make([]int, len(columns))
	for i, name := range columns {
		j, ok := d.index[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		indices[i] = j
	}

	out, err := New(columns)
	if err != nil {
		return nil, err
	}
	for _, row := range d.rows {
		cells := make([]string, len(indices))
		for i, j := range indices {
			cells[i] = row[j]
		}
		if err := out.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Filter returns a new Dataset with the rows the predicate accepts, keeping
// the original row order.
func (d *Dataset) Filter(pred func(Row) bool) *Dataset {
	out := &Dataset{
		columns: append([]string(nil), d.columns...),
		index:   d.index,
	}
	for i, cells := range d.rows {
		row, _ := d.Row(i)
		if pred(row) {
			out.rows = append(out.rows, append([]string(nil), cells...))
		}
	}
	return out
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		columns: append([]string(nil), d.columns...),
		index:   make(map[string]int, len(d.index)),
		rows:    make([][]string, len(d.rows)),
	}
	for name, i := range d.index {
		out.index[name] = i
	}
	for i, cells := range d.rows {
		out.rows[i] = append([]string(nil), cells...)
	}
	return out
}

// String returns a compact description of the dataset shape.
func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset(%d columns, %d rows)", len(d.columns), len(d.rows))
}
