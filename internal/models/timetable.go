package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Likith-04/Tibl.ai/internal/scheduler"
)

// ExportFormat enumerates the download formats of a timetable.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatJSON ExportFormat = "json"
)

// ParseExportFormat accepts a case-insensitive format name.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch f := ExportFormat(lower(raw)); f {
	case ExportFormatCSV, ExportFormatPDF, ExportFormatXLSX, ExportFormatJSON:
		return f, true
	default:
		return "", false
	}
}

// Timetable is a complete generated run as served by the API.
type Timetable struct {
	ID          string                 `json:"id"`
	Seed        int64                  `json:"seed"`
	Settings    scheduler.Settings     `json:"settings"`
	Sections    []string               `json:"sections"`
	Allocations []scheduler.Allocation `json:"allocations"`
	Deficits    []scheduler.Deficit    `json:"deficits"`
	Stats       scheduler.Stats        `json:"stats"`
	Teachers    TeacherNames           `json:"teachers,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// TeacherName returns the display name recorded for a teacher id, or "".
func (t *Timetable) TeacherName(id string) string {
	return t.Teachers[id]
}

// Run returns the persisted header row of the timetable.
func (t *Timetable) Run() TimetableRun {
	return TimetableRun{
		ID:        t.ID,
		Seed:      t.Seed,
		Settings:  RunSettings(t.Settings),
		Sections:  StringList(t.Sections),
		Stats:     RunStats(t.Stats),
		Deficits:  RunDeficits(t.Deficits),
		Teachers:  t.Teachers,
		CreatedAt: t.CreatedAt,
	}
}

// TimetableRun is one row of timetable_runs.
type TimetableRun struct {
	ID        string       `db:"id"`
	Seed      int64        `db:"seed"`
	Settings  RunSettings  `db:"settings"`
	Sections  StringList   `db:"sections"`
	Stats     RunStats     `db:"stats"`
	Deficits  RunDeficits  `db:"deficits"`
	Teachers  TeacherNames `db:"teachers"`
	CreatedAt time.Time    `db:"created_at"`
}

// Timetable joins the run header with its allocations.
func (r TimetableRun) Timetable(allocations []scheduler.Allocation) *Timetable {
	return &Timetable{
		ID:          r.ID,
		Seed:        r.Seed,
		Settings:    scheduler.Settings(r.Settings),
		Sections:    []string(r.Sections),
		Allocations: allocations,
		Deficits:    []scheduler.Deficit(r.Deficits),
		Stats:       scheduler.Stats(r.Stats),
		Teachers:    r.Teachers,
		CreatedAt:   r.CreatedAt,
	}
}

// AllocationRow is one row of timetable_allocations.
type AllocationRow struct {
	RunID       string `db:"run_id"`
	Position    int    `db:"position"`
	Day         string `db:"day"`
	Section     string `db:"section"`
	Branch      string `db:"branch"`
	Batch       string `db:"batch"`
	SlotIndex   int    `db:"slot_index"`
	TimeLabel   string `db:"time_label"`
	Activity    string `db:"activity"`
	SubjectCode string `db:"subject_code"`
	TeacherID   string `db:"teacher_id"`
	Room        string `db:"room"`
	Anomaly     bool   `db:"anomaly"`
}

// NewAllocationRows numbers allocations in export order for persistence.
func NewAllocationRows(runID string, allocations []scheduler.Allocation) []AllocationRow {
	rows := make([]AllocationRow, len(allocations))
	for i, a := range allocations {
		rows[i] = AllocationRow{
			RunID:       runID,
			Position:    i,
			Day:         a.Day,
			Section:     a.Section,
			Branch:      a.Branch,
			Batch:       a.Batch,
			SlotIndex:   a.SlotIndex,
			TimeLabel:   a.Time,
			Activity:    a.Activity,
			SubjectCode: a.SubjectCode,
			TeacherID:   a.TeacherID,
			Room:        a.Room,
			Anomaly:     a.Anomaly,
		}
	}
	return rows
}

// Allocation converts the row back into the engine record.
func (r AllocationRow) Allocation() scheduler.Allocation {
	return scheduler.Allocation{
		Day:         r.Day,
		Section:     r.Section,
		Branch:      r.Branch,
		Batch:       r.Batch,
		SlotIndex:   r.SlotIndex,
		Time:        r.TimeLabel,
		Activity:    r.Activity,
		SubjectCode: r.SubjectCode,
		TeacherID:   r.TeacherID,
		Room:        r.Room,
		Anomaly:     r.Anomaly,
	}
}

// RunSettings stores engine settings as JSONB.
type RunSettings scheduler.Settings

// Value marshals settings to JSON for persistence.
func (s RunSettings) Value() (driver.Value, error) { return jsonValue(s, "run settings") }

// Scan unmarshals JSON payloads into settings.
func (s *RunSettings) Scan(value interface{}) error { return scanJSON(value, s, "run settings") }

// RunStats stores run statistics as JSONB.
type RunStats scheduler.Stats

// Value marshals stats to JSON for persistence.
func (s RunStats) Value() (driver.Value, error) { return jsonValue(s, "run stats") }

// Scan unmarshals JSON payloads into stats.
func (s *RunStats) Scan(value interface{}) error { return scanJSON(value, s, "run stats") }

// RunDeficits stores the deficit list as JSONB.
type RunDeficits []scheduler.Deficit

// Value marshals deficits to JSON, writing an empty array for nil.
func (d RunDeficits) Value() (driver.Value, error) {
	if d == nil {
		d = RunDeficits{}
	}
	return jsonValue(d, "run deficits")
}

// Scan unmarshals JSON payloads into deficits.
func (d *RunDeficits) Scan(value interface{}) error { return scanJSON(value, d, "run deficits") }

// TeacherNames maps teacher ids to display names and is stored as a JSONB object.
type TeacherNames map[string]string

// Value marshals the names to JSON, writing an empty object for nil.
func (n TeacherNames) Value() (driver.Value, error) {
	if n == nil {
		n = TeacherNames{}
	}
	return jsonValue(n, "teacher names")
}

// Scan unmarshals a JSON object.
func (n *TeacherNames) Scan(value interface{}) error { return scanJSON(value, n, "teacher names") }

// StringList stores a string slice as a JSONB array.
type StringList []string

// Value marshals the list to JSON, writing an empty array for nil.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return jsonValue(l, "string list")
}

// Scan unmarshals a JSON array.
func (l *StringList) Scan(value interface{}) error { return scanJSON(value, l, "string list") }

func jsonValue(v interface{}, what string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", what, err)
	}
	return data, nil
}

func scanJSON(value interface{}, dest interface{}, what string) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported %s type %T", what, value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
