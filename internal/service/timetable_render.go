package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Likith-04/Tibl.ai/internal/dto"
	"github.com/Likith-04/Tibl.ai/internal/models"
	"github.com/Likith-04/Tibl.ai/internal/scheduler"
	"github.com/Likith-04/Tibl.ai/pkg/export"
)

// Overall schedule columns, in file order.
const (
	colDay         = "Day"
	colBranch      = "Branch"
	colSection     = "Section"
	colBatch       = "Batch"
	colTime        = "Time"
	colActivity    = "Activity"
	colRoom        = "Room"
	colSubject     = "Subject/Notes"
	colTeacher     = "Teacher"
	colTeacherName = "Teacher Name"
)

var overallHeaders = []string{colDay, colBranch, colSection, colBatch, colTime, colActivity, colRoom, colSubject, colTeacher, colTeacherName}

// timetableRenderer turns a run into the tabular shapes every export format shares.
type timetableRenderer struct {
	csv  *export.CSVExporter
	pdf  *export.PDFExporter
	xlsx *export.XLSXExporter
}

func newTimetableRenderer() *timetableRenderer {
	return &timetableRenderer{
		csv:  export.NewCSVExporter(),
		pdf:  export.NewPDFExporter(),
		xlsx: export.NewXLSXExporter(),
	}
}

// Render encodes the run in the requested format and returns the bytes and content type.
func (r *timetableRenderer) Render(tt *models.Timetable, format models.ExportFormat) ([]byte, string, error) {
	switch format {
	case models.ExportFormatCSV:
		data, err := r.csv.Render(overallDataset(tt))
		return data, "text/csv; charset=utf-8", err
	case models.ExportFormatPDF:
		data, err := r.pdf.Render(sectionSheets(tt), "Timetable "+shortID(tt.ID))
		return data, "application/pdf", err
	case models.ExportFormatXLSX:
		data, err := r.xlsx.Render(sectionSheets(tt))
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	case models.ExportFormatJSON:
		data, err := json.Marshal(sectionRecords(tt))
		return data, "application/json", err
	default:
		return nil, "", fmt.Errorf("unsupported format %q", format)
	}
}

// Summary renders the allocation summary as CSV.
func (r *timetableRenderer) Summary(tt *models.Timetable) ([]byte, error) {
	rows := summarize(tt.Allocations)
	data := export.Dataset{Headers: []string{"Subject", "TotalPeriods"}, Rows: make([]map[string]string, len(rows))}
	for i, row := range rows {
		data.Rows[i] = map[string]string{"Subject": row.Subject, "TotalPeriods": fmt.Sprint(row.TotalPeriods)}
	}
	return r.csv.Render(data)
}

// overallDataset flattens every allocation, ordered by branch, section, weekday, slot and batch.
func overallDataset(tt *models.Timetable) export.Dataset {
	dayOrder := indexOf(tt.Settings.Days)
	allocations := append([]scheduler.Allocation(nil), tt.Allocations...)
	sort.SliceStable(allocations, func(i, j int) bool {
		a, b := allocations[i], allocations[j]
		if a.Branch != b.Branch {
			return a.Branch < b.Branch
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if dayOrder[a.Day] != dayOrder[b.Day] {
			return dayOrder[a.Day] < dayOrder[b.Day]
		}
		if a.SlotIndex != b.SlotIndex {
			return a.SlotIndex < b.SlotIndex
		}
		return a.Batch < b.Batch
	})

	rows := make([]map[string]string, len(allocations))
	for i, a := range allocations {
		rows[i] = map[string]string{
			colDay:         a.Day,
			colBranch:      a.Branch,
			colSection:     sectionLetter(a.Section),
			colBatch:       a.Batch,
			colTime:        a.Time,
			colActivity:    a.Activity,
			colRoom:        a.Room,
			colSubject:     a.SubjectCode,
			colTeacher:     a.TeacherID,
			colTeacherName: tt.TeacherName(a.TeacherID),
		}
	}
	return export.Dataset{Headers: overallHeaders, Rows: rows}
}

// sectionSheets lays each section out as a day-by-slot grid.
func sectionSheets(tt *models.Timetable) []export.Sheet {
	headers := append([]string{colDay}, tt.Settings.TimeSlots...)
	cells := cellText(tt)
	sheets := make([]export.Sheet, 0, len(tt.Sections))
	for _, section := range tt.Sections {
		rows := make([]map[string]string, 0, len(tt.Settings.Days))
		for _, day := range tt.Settings.Days {
			row := map[string]string{colDay: day}
			for slot, label := range tt.Settings.TimeSlots {
				row[label] = strings.Join(cells[cellKey{section, day, slot}], "\n")
			}
			rows = append(rows, row)
		}
		sheets = append(sheets, export.Sheet{Name: section, Dataset: export.Dataset{Headers: headers, Rows: rows}})
	}
	return sheets
}

// sectionRecords is the JSON form of sectionSheets, keyed by section.
func sectionRecords(tt *models.Timetable) map[string][]map[string]string {
	records := make(map[string][]map[string]string, len(tt.Sections))
	for _, sheet := range sectionSheets(tt) {
		records[sheet.Name] = sheet.Dataset.Rows
	}
	return records
}

type cellKey struct {
	section string
	day     string
	slot    int
}

func cellText(tt *models.Timetable) map[cellKey][]string {
	cells := make(map[cellKey][]string)
	for _, a := range tt.Allocations {
		key := cellKey{a.Section, a.Day, a.SlotIndex}
		var text string
		switch a.Activity {
		case scheduler.ActivityLab:
			text = fmt.Sprintf("%s -> %s (%s)", a.Batch, a.Room, withTeacher(tt, a.SubjectCode, a.TeacherID))
		case scheduler.ActivityUnassigned:
			text = fmt.Sprintf("%s -> UNASSIGNED (%s)", a.Batch, a.SubjectCode)
		default:
			text = withTeacher(tt, a.SubjectCode, a.TeacherID)
		}
		cells[key] = append(cells[key], text)
	}
	return cells
}

// withTeacher labels a subject with its teacher as "CODE - Name (ID)", or "CODE - ID" when the run has no
// name for the id.
func withTeacher(tt *models.Timetable, subjectCode, teacherID string) string {
	if teacherID == "" {
		return subjectCode
	}
	if name := tt.TeacherName(teacherID); name != "" {
		return fmt.Sprintf("%s - %s (%s)", subjectCode, name, teacherID)
	}
	return fmt.Sprintf("%s - %s", subjectCode, teacherID)
}

// teacherRows lays out one teacher's week as day-by-slot rows. Cells name the subject and section; lab
// cells add the batch and room.
func teacherRows(tt *models.Timetable, teacherID string) ([]map[string]string, int) {
	cells := make(map[cellKey][]string)
	sessions := 0
	for _, a := range tt.Allocations {
		if a.TeacherID != teacherID {
			continue
		}
		sessions++
		key := cellKey{day: a.Day, slot: a.SlotIndex}
		text := fmt.Sprintf("%s (%s)", a.SubjectCode, a.Section)
		if a.Activity == scheduler.ActivityLab {
			text = fmt.Sprintf("%s (%s %s @ %s)", a.SubjectCode, a.Section, a.Batch, a.Room)
		}
		cells[key] = append(cells[key], text)
	}
	rows := make([]map[string]string, 0, len(tt.Settings.Days))
	for _, day := range tt.Settings.Days {
		row := map[string]string{colDay: day}
		for slot, label := range tt.Settings.TimeSlots {
			row[label] = strings.Join(cells[cellKey{day: day, slot: slot}], "\n")
		}
		rows = append(rows, row)
	}
	return rows, sessions
}

// runTeachers records the catalog name of every teacher the run placed.
func runTeachers(catalog scheduler.Catalog, allocations []scheduler.Allocation) models.TeacherNames {
	names := make(models.TeacherNames)
	for _, a := range allocations {
		if a.TeacherID == "" {
			continue
		}
		if _, ok := names[a.TeacherID]; !ok {
			names[a.TeacherID] = catalog.TeacherName(a.TeacherID)
		}
	}
	return names
}

// summarize counts periods per subject in first-seen order. Lab entries cover two periods;
// anomaly markers are not taught and count zero.
func summarize(allocations []scheduler.Allocation) []dto.SubjectPeriods {
	var rows []dto.SubjectPeriods
	index := make(map[string]int)
	for _, a := range allocations {
		if a.SubjectCode == "" || a.Anomaly {
			continue
		}
		periods := 1
		if a.Activity == scheduler.ActivityLab {
			periods = 2
		}
		i, ok := index[a.SubjectCode]
		if !ok {
			i = len(rows)
			index[a.SubjectCode] = i
			rows = append(rows, dto.SubjectPeriods{Subject: a.SubjectCode})
		}
		rows[i].TotalPeriods += periods
	}
	return rows
}

func sectionLetter(section string) string {
	if i := strings.LastIndex(section, "-"); i >= 0 {
		return section[i+1:]
	}
	return section
}

func indexOf(values []string) map[string]int {
	index := make(map[string]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	return index
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
