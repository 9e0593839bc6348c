package pipeline

import "sort"

// Table accumulates records under an explicit, ordered column list. Columns
// are the union of all appended records' keys; cells absent from a record are
// nil. Unseen columns are added in sorted order, so a table built from the
// same records in the same order is always identical.
type Table struct {
	cols   []string
	colIdx map[string]int
	rows   []Record
}

// NewTable returns an empty table with no columns.
func NewTable() *Table {
	return &Table{colIdx: make(map[string]int)}
}

// NewTableWithColumns returns an empty table with a fixed initial column list.
func NewTableWithColumns(cols []string) *Table {
	t := NewTable()
	for _, c := range cols {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) {
	if _, ok := t.colIdx[name]; ok {
		return
	}
	t.colIdx[name] = len(t.cols)
	t.cols = append(t.cols, name)
}

// Append adds one record, extending the column set with the record's unseen
// keys in sorted order.
func (t *Table) Append(rec Record) {
	unseen := make([]string, 0, len(rec))
	for k := range rec {
		if _, ok := t.colIdx[k]; !ok {
			unseen = append(unseen, k)
		}
	}
	sort.Strings(unseen)
	for _, k := range unseen {
		t.addColumn(k)
	}
	t.rows = append(t.rows, rec)
}

// AppendAll adds records in order.
func (t *Table) AppendAll(recs []Record) {
	for _, rec := range recs {
		t.Append(rec)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns a copy of the ordered column list.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// Cell returns the value at (row, column), or nil when the record has no
// value for the column.
func (t *Table) Cell(row int, column string) any {
	return t.rows[row][column]
}

// Row returns the record backing row i. Callers must not mutate it.
func (t *Table) Row(i int) Record {
	return t.rows[i]
}

// Prefixed returns a copy of the table with every column renamed to
// prefix+name. Used before the customer/order join so the two sides cannot
// collide.
func (t *Table) Prefixed(prefix string) *Table {
	out := NewTable()
	for _, c := range t.cols {
		out.addColumn(prefix + c)
	}
	for _, rec := range t.rows {
		renamed := make(Record, len(rec))
		for k, v := range rec {
			renamed[prefix+k] = v
		}
		out.rows = append(out.rows, renamed)
	}
	return out
}

// Matrix renders the table as a header row plus one cell slice per record,
// in column order. Missing cells are nil.
func (t *Table) Matrix() (header []string, cells [][]any) {
	header = t.Columns()
	cells = make([][]any, len(t.rows))
	for i, rec := range t.rows {
		row := make([]any, len(t.cols))
		for j, c := range t.cols {
			row[j] = rec[c]
		}
		cells[i] = row
	}
	return header, cells
}
