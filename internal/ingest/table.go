package ingest

import (
	"errors"
	"strings"
)

// DefaultPreviewRows is how many data rows an upload preview shows.
const DefaultPreviewRows = 50

var ErrEmptyTable = errors.New("file has no header row")

// Row is one data line of an uploaded file. Rows may be shorter than the header.
type Row []string

// Cell returns the trimmed value at index i, or "" when the row has no such column.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}

	return strings.TrimSpace(r[i])
}

// Field names a logical column and the alternative headers accepted for it,
// in priority order.
type Field struct {
	Name    string
	Aliases []string
}

func (f Field) Headers() []string {
	return append([]string{f.Name}, f.Aliases...)
}

type Table struct {
	Header []string
	Rows   []Row
}

// NewTable treats the first row as the header.
func NewTable(rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return Table{}, ErrEmptyTable
	}

	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
	}

	data := make([]Row, 0, len(rows)-1)
	for _, row := range rows[1:] {
		data = append(data, Row(row))
	}

	return Table{Header: header, Rows: data}, nil
}

// Index resolves a field to a column index by case-insensitive header match,
// trying the primary name first and then each alias. It returns -1 when none
// of the accepted headers is present.
func (t Table) Index(f Field) int {
	for _, name := range f.Headers() {
		for i, header := range t.Header {
			if strings.EqualFold(header, name) {
				return i
			}
		}
	}

	return -1
}

func (t Table) Has(f Field) bool {
	return t.Index(f) >= 0
}

// Preview returns up to n data rows; n <= 0 means DefaultPreviewRows.
func (t Table) Preview(n int) []Row {
	if n <= 0 {
		n = DefaultPreviewRows
	}

	if len(t.Rows) < n {
		n = len(t.Rows)
	}

	return t.Rows[:n]
}

// Records returns the header followed by the data rows.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)

	for _, row := range t.Rows {
		out = append(out, []string(row))
	}

	return out
}
