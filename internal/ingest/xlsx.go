package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnreadableFile = errors.New("cannot read spreadsheet")

// ParseXLSX reads the first sheet of a workbook into rows of trimmed cells.
// Rows without any non-blank cell are skipped, matching ParseCSV.
func ParseXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %q, %w", sheets[0], err)
	}

	rows := make([][]string, 0, len(raw))

	for _, cells := range raw {
		blank := true

		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
			if cells[i] != "" {
				blank = false
			}
		}

		if blank {
			continue
		}

		rows = append(rows, cells)
	}

	return rows, nil
}
