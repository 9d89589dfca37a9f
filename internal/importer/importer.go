// Package importer maps uploaded tables onto coupon and store insert records.
package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Fuchsoria/couponslots/internal/ingest"
)

var ErrMissingColumn = errors.New("missing required column")

// Result holds the records that survived mapping. Rows dropped for lack of a
// required value are only counted.
type Result[T any] struct {
	Records []T
	Total   int
	Dropped int
}

// Preview returns up to n mapped records; n <= 0 means ingest.DefaultPreviewRows.
func (r Result[T]) Preview(n int) []T {
	if n <= 0 {
		n = ingest.DefaultPreviewRows
	}

	if len(r.Records) < n {
		n = len(r.Records)
	}

	return r.Records[:n]
}

// Column documents an accepted upload column.
type Column struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Required bool     `json:"required"`
	Default  string   `json:"default,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// requireAny fails unless at least one of fields is present in the header.
func requireAny(t ingest.Table, fields ...ingest.Field) error {
	names := make([]string, 0, len(fields))

	for _, f := range fields {
		if t.Has(f) {
			return nil
		}

		names = append(names, fmt.Sprintf("%q", f.Name))
	}

	return fmt.Errorf("%w: file must contain a %s column", ErrMissingColumn, strings.Join(names, " or "))
}

// columns caches the resolved index of each field for one table.
type columns map[string]int

func resolve(t ingest.Table, fields ...ingest.Field) columns {
	c := make(columns, len(fields))
	for _, f := range fields {
		c[f.Name] = t.Index(f)
	}

	return c
}

func (c columns) get(row ingest.Row, f ingest.Field) string {
	idx, ok := c[f.Name]
	if !ok {
		return ""
	}

	return row.Cell(idx)
}

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)

			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')

			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
