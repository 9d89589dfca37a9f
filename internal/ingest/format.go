package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

var ErrUnsupportedFormat = errors.New("unsupported file format, upload a .csv or .xlsx file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// DetectFormat picks a codec by file extension.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// Decode converts an uploaded file into a Table, whichever codec it needs.
func Decode(filename string, data []byte) (Table, error) {
	var rows [][]string

	switch DetectFormat(filename) {
	case FormatCSV:
		rows = ParseCSV(string(bytes.TrimPrefix(data, utf8BOM)))
	case FormatXLSX:
		var err error

		rows, err = ParseXLSX(bytes.NewReader(data))
		if err != nil {
			return Table{}, err
		}
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	return NewTable(rows)
}
