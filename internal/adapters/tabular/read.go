// Package tabular reads spreadsheet uploads into raw tables and writes
// datasets back out as CSV.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/gradelens/internal/domain/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read dispatches on the file extension of name.
func Read(name string, r io.Reader) (dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, "")
	default:
		return dataset.Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadCSV parses delimited text. A UTF-8 BOM is dropped and the delimiter is
// chosen among comma, semicolon and tab by counting them in the header line.
func ReadCSV(r io.Reader) (dataset.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	return toTable(rows)
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ReadXLSX reads one sheet of a workbook; an empty sheet name selects the first.
func ReadXLSX(r io.Reader, sheet string) (dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return dataset.Table{}, ErrEmptyFile
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return toTable(rows)
}

// toTable splits off the header row, trims headers and pads short rows.
// Fully blank rows are dropped.
func toTable(rows [][]string) (dataset.Table, error) {
	if len(rows) == 0 {
		return dataset.Table{}, ErrEmptyFile
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	if blank(headers) {
		return dataset.Table{}, ErrEmptyFile
	}

	t := dataset.Table{Headers: headers}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		padded := make([]string, len(headers))
		copy(padded, row)
		t.Rows = append(t.Rows, padded)
	}
	return t, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
