package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/compscout/internal/types"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const exportSheet = "Competitors"

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Export writes products in the requested format using types.ExportColumns.
func Export(w io.Writer, format string, products []*types.Product) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, products)
	case FormatXLSX:
		return WriteXLSX(w, products)
	default:
		return &types.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported export format %q (valid: csv, xlsx)", format)}
	}
}

// WriteCSV writes a header row and one row per product.
func WriteCSV(w io.Writer, products []*types.Product) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(types.ExportColumns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, p := range products {
		flat := p.ToFlatMap()
		row := make([]string, len(types.ExportColumns))
		for i, h := range types.ExportColumns {
			row[i] = flat[h]
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes a single-sheet workbook. Numeric columns are stored as numbers.
func WriteXLSX(w io.Writer, products []*types.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range types.ExportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("set header %s: %w", h, err)
		}
	}

	for rowIdx, p := range products {
		flat := p.ToFlatMap()
		for colIdx, h := range types.ExportColumns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(exportSheet, cell, cellValue(h, flat[h])); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellValue(column, v string) any {
	if column == "price" || column == "rating" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}
