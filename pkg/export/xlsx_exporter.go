package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXExporter renders sheets into an Excel workbook, one worksheet per sheet.
type XLSXExporter struct {
	// FirstColumnWidth and ColumnWidth are in Excel character units.
	FirstColumnWidth float64
	ColumnWidth      float64
}

// NewXLSXExporter constructs an exporter with timetable-friendly column widths.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{FirstColumnWidth: 12, ColumnWidth: 22}
}

// Render writes the workbook and returns its bytes.
func (e *XLSXExporter) Render(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	seen := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		headers := sheet.Dataset.Headers
		if len(headers) == 0 {
			return nil, fmt.Errorf("sheet %q has no headers", sheet.Name)
		}
		name := sheetName(sheet.Name, i)
		if seen[name] {
			return nil, fmt.Errorf("duplicate sheet name %q", name)
		}
		seen[name] = true

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}

		for col, header := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(name, cell, header); err != nil {
				return nil, fmt.Errorf("write header: %w", err)
			}
			colName, _ := excelize.ColumnNumberToName(col + 1)
			width := e.ColumnWidth
			if col == 0 {
				width = e.FirstColumnWidth
			}
			if err := f.SetColWidth(name, colName, colName, width); err != nil {
				return nil, fmt.Errorf("set column width: %w", err)
			}
		}
		lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
		if err := f.SetCellStyle(name, "A1", lastHeader, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}

		for r, row := range sheet.Dataset.Rows {
			for col, header := range headers {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				if err := f.SetCellValue(name, cell, row[header]); err != nil {
					return nil, fmt.Errorf("write cell %s: %w", cell, err)
				}
			}
		}
		if len(sheet.Dataset.Rows) > 0 {
			lastCell, _ := excelize.CoordinatesToCellName(len(headers), len(sheet.Dataset.Rows)+1)
			if err := f.SetCellStyle(name, "A2", lastCell, bodyStyle); err != nil {
				return nil, fmt.Errorf("style body: %w", err)
			}
		}
	}
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims names to Excel's limit and falls back to a positional name.
func sheetName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("Sheet%d", index+1)
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}
