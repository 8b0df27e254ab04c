package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/okian/gradelens/internal/domain/dataset"
)

// DefaultSheet is the sheet WriteXLSX fills.
const DefaultSheet = "Sheet1"

// WriteCSV writes ds as UTF-8 CSV with a BOM so spreadsheet tools pick the
// right encoding. When columns is empty every dataset column is written.
func WriteCSV(w io.Writer, ds dataset.Dataset, columns ...string) error {
	if len(columns) == 0 {
		columns = ds.Columns()
	}
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	row := make([]string, len(columns))
	for i := 0; i < ds.Len(); i++ {
		for j, c := range columns {
			row[j] = FormatCell(ds.Value(i, c))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes ds to the first sheet of a new workbook. Numbers stay
// numeric cells; absent values are left blank.
func WriteXLSX(w io.Writer, ds dataset.Dataset, columns ...string) error {
	if len(columns) == 0 {
		columns = ds.Columns()
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(DefaultSheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	for i := 0; i < ds.Len(); i++ {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = ds.Value(i, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &row); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// FormatCell renders a scalar as text; absent values are empty.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
