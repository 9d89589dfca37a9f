package ingest

import (
	"strings"
)

const quote = '"'

// ParseCSV splits delimited text into rows of trimmed cells.
//
// Quoted fields may hold commas, newlines and escaped quotes (""). A physical
// line that ends inside an open quoted field is joined with the next one, the
// newline kept as part of the field. Blank lines outside quotes are skipped.
// An unterminated quote at the end of input does not fail the parse: whatever
// was buffered is flushed as the last row.
func ParseCSV(text string) [][]string {
	var (
		rows     [][]string
		buf      strings.Builder
		inQuotes bool
		pending  bool
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSuffix(raw, "\r")

		if !pending && strings.TrimSpace(line) == "" {
			continue
		}

		if pending {
			buf.WriteByte('\n')
		}

		buf.WriteString(line)

		inQuotes = scanQuotes(line, inQuotes)
		if inQuotes {
			pending = true

			continue
		}

		rows = append(rows, splitCells(buf.String()))
		buf.Reset()
		pending = false
	}

	if pending && strings.TrimSpace(buf.String()) != "" {
		rows = append(rows, splitCells(buf.String()))
	}

	return rows
}

// scanQuotes returns the quote state at the end of line given the state at its
// start. A doubled quote is an escaped literal and never toggles the state.
func scanQuotes(line string, inQuotes bool) bool {
	for i := 0; i < len(line); i++ {
		if line[i] != quote {
			continue
		}

		if i+1 < len(line) && line[i+1] == quote {
			i++

			continue
		}

		inQuotes = !inQuotes
	}

	return inQuotes
}

func splitCells(row string) []string {
	var (
		cells    []string
		start    int
		inQuotes bool
	)

	for i := 0; i < len(row); i++ {
		switch row[i] {
		case quote:
			if i+1 < len(row) && row[i+1] == quote {
				i++

				continue
			}

			inQuotes = !inQuotes
		case ',':
			if inQuotes {
				continue
			}

			cells = append(cells, cleanCell(row[start:i]))
			start = i + 1
		}
	}

	return append(cells, cleanCell(row[start:]))
}

func cleanCell(cell string) string {
	cell = strings.TrimSpace(cell)

	if len(cell) >= 2 && cell[0] == quote && cell[len(cell)-1] == quote {
		cell = cell[1 : len(cell)-1]
	}

	return strings.ReplaceAll(cell, `""`, `"`)
}

// Serialize renders rows back into delimited text that ParseCSV reads into the
// same rows.
func Serialize(rows [][]string) string {
	var b strings.Builder

	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}

		for j, cell := range row {
			if j > 0 {
				b.WriteByte(',')
			}

			if needsQuoting(cell) || (cell == "" && len(row) == 1) {
				b.WriteByte(quote)
				b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
				b.WriteByte(quote)

				continue
			}

			b.WriteString(cell)
		}
	}

	return b.String()
}

func needsQuoting(cell string) bool {
	if strings.ContainsAny(cell, ",\"\n\r") {
		return true
	}

	return cell != strings.TrimSpace(cell)
}
