package bdd

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	messages "github.com/cucumber/messages/go/v21"
)

// ErrColumnNotFound is wrapped by Row.Lookup for unknown column names.
var ErrColumnNotFound = errors.New("column not found")

// ColumnError is raised by Row.Get for an unknown column. The executor
// recovers it and fails the step.
type ColumnError struct {
	Column  string
	Headers []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %q (columns: %s)", ErrColumnNotFound, e.Column, strings.Join(e.Headers, ", "))
}

func (e *ColumnError) Unwrap() error {
	return ErrColumnNotFound
}

// Row is a single data row of a Table.
type Row struct {
	cells   []string
	headers []string
}

// Lookup returns the cell under the exactly named column. Column names are
// case-sensitive.
func (r Row) Lookup(col string) (string, error) {
	for i, h := range r.headers {
		if h != col {
			continue
		}
		if i < len(r.cells) {
			return r.cells[i], nil
		}
		return "", nil
	}
	return "", &ColumnError{Column: col, Headers: append([]string(nil), r.headers...)}
}

// Get returns the cell under col and fails the step when the column does not exist.
func (r Row) Get(col string) string {
	v, err := r.Lookup(col)
	if err != nil {
		panic(err)
	}
	return v
}

// Cell returns the cell at index (0-based) or an empty string when out of range.
func (r Row) Cell(index int) string {
	if index < 0 || index >= len(r.cells) {
		return ""
	}
	return r.cells[index]
}

// Values returns a copy of all cells in order.
func (r Row) Values() []string {
	return append([]string(nil), r.cells...)
}

// Len returns the number of cells in the row.
func (r Row) Len() int {
	return len(r.cells)
}

// Table is a Gherkin data table whose first row holds the column names.
type Table struct {
	headers []string
	rows    []Row
}

// NewTable builds a Table from raw cells. The first row becomes the header.
func NewTable(data [][]string) Table {
	if len(data) == 0 {
		return Table{}
	}

	headers := append([]string(nil), data[0]...)
	rows := make([]Row, 0, len(data)-1)
	for _, cells := range data[1:] {
		rows = append(rows, Row{
			cells:   append([]string(nil), cells...),
			headers: headers,
		})
	}
	return Table{headers: headers, rows: rows}
}

// NewTableFromPickle converts a compiled pickle table.
func NewTableFromPickle(pt *messages.PickleTable) Table {
	if pt == nil {
		return Table{}
	}
	data := make([][]string, len(pt.Rows))
	for i, row := range pt.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.Value
		}
		data[i] = cells
	}
	return NewTable(data)
}

// NewTableFromDataTable converts a Gherkin AST data table.
func NewTableFromDataTable(dt *messages.DataTable) Table {
	if dt == nil {
		return Table{}
	}
	data := make([][]string, len(dt.Rows))
	for i, row := range dt.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.Value
		}
		data[i] = cells
	}
	return NewTable(data)
}

// Headers returns a copy of the column names.
func (t Table) Headers() []string {
	return append([]string(nil), t.headers...)
}

// Len returns the number of data rows, excluding the header.
func (t Table) Len() int {
	return len(t.rows)
}

// Rows returns the data rows in order. A table without data rows yields an
// empty, non-nil slice.
func (t Table) Rows() []Row {
	return append(make([]Row, 0, len(t.rows)), t.rows...)
}

// All iterates over the data rows with their 0-based index.
func (t Table) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, row := range t.rows {
			if !yield(i, row) {
				return
			}
		}
	}
}

// Raw returns every row including the header, as written in the feature file.
func (t Table) Raw() [][]string {
	if len(t.headers) == 0 {
		return nil
	}
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Headers())
	for _, r := range t.rows {
		out = append(out, r.Values())
	}
	return out
}

// Field is one key/value pair of a two-column table.
type Field struct {
	Key   string
	Value string
}

// Fields reads a two-column key/value table such as
//
//	| Field     | Value |
//	| firstName | Sarah |
//
// preserving row order. Missing columns fail the step.
func (t Table) Fields(keyCol, valueCol string) []Field {
	out := make([]Field, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, Field{Key: r.Get(keyCol), Value: r.Get(valueCol)})
	}
	return out
}

// ToMap is Fields collapsed into a map; later rows win on duplicate keys.
func (t Table) ToMap(keyCol, valueCol string) map[string]string {
	out := make(map[string]string, len(t.rows))
	for _, f := range t.Fields(keyCol, valueCol) {
		out[f.Key] = f.Value
	}
	return out
}

// DocString is a Gherkin doc string argument.
type DocString struct {
	Content   string
	MediaType string
}

// NewDocStringFromPickle converts a compiled pickle doc string.
func NewDocStringFromPickle(ds *messages.PickleDocString) DocString {
	if ds == nil {
		return DocString{}
	}
	return DocString{Content: ds.Content, MediaType: ds.MediaType}
}
