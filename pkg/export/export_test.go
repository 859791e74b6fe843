package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleSheets() []Sheet {
	headers := []string{"Day", "09:00-10:00", "10:00-11:00"}
	return []Sheet{
		{Name: "CSE-A", Dataset: Dataset{Headers: headers, Rows: []map[string]string{
			{"Day": "MON", "09:00-10:00": "CSE_DBMS_1", "10:00-11:00": "A1 -> CSE_Lab1 (CSE_OS_1)\nA2 -> CSE_Lab2 (CSE_CN_1)"},
			{"Day": "TUE", "09:00-10:00": ""},
		}}},
		{Name: "ISE-D", Dataset: Dataset{Headers: headers, Rows: []map[string]string{
			{"Day": "MON", "09:00-10:00": "ISE_AI_1"},
		}}},
	}
}

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Day", "Section", "Subject/Notes"},
		Rows: []map[string]string{
			{"Day": "MON", "Section": "A", "Subject/Notes": "CSE_DBMS_1"},
			{"Day": "TUE", "Section": "A"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Day", "Section", "Subject/Notes"}, records[0])
	assert.Equal(t, []string{"MON", "A", "CSE_DBMS_1"}, records[1])
	assert.Equal(t, []string{"TUE", "A", ""}, records[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleSheets(), "Timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRejectsEmpty(t *testing.T) {
	_, err := NewPDFExporter().Render(nil, "")
	assert.Error(t, err)

	_, err = NewPDFExporter().Render([]Sheet{{Name: "x"}}, "")
	assert.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleSheets())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"CSE-A", "ISE-D"}, f.GetSheetList())

	header, err := f.GetCellValue("CSE-A", "B1")
	require.NoError(t, err)
	assert.Equal(t, "09:00-10:00", header)

	lab, err := f.GetCellValue("CSE-A", "C2")
	require.NoError(t, err)
	assert.Contains(t, lab, "A2 -> CSE_Lab2 (CSE_CN_1)")

	theory, err := f.GetCellValue("ISE-D", "B2")
	require.NoError(t, err)
	assert.Equal(t, "ISE_AI_1", theory)
}

func TestXLSXExporterRejectsDuplicateSheets(t *testing.T) {
	sheets := sampleSheets()
	sheets[1].Name = sheets[0].Name

	_, err := NewXLSXExporter().Render(sheets)
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet3", sheetName("", 2))
	assert.Len(t, []rune(sheetName("a-very-long-section-name-that-excel-rejects", 0)), maxSheetName)
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(3)
	assert.Equal(t, pdfFirstColumn, widths[0])
	assert.InDelta(t, pdfPageWidth, widths[0]+widths[1]+widths[2], 0.001)
	assert.Equal(t, []float64{pdfPageWidth}, columnWidths(1))
}
