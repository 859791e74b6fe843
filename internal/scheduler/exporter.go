package scheduler

// Activity labels used in allocation records.
const (
	ActivityTheory     = "Theory/Project"
	ActivityLab        = "Lab"
	ActivityUnassigned = "Unassigned"
)

// Allocation is one placed session-slot-batch combination.
type Allocation struct {
	Day         string `json:"day"`
	Section     string `json:"section"`
	Branch      string `json:"branch"`
	Batch       string `json:"batch"`
	SlotIndex   int    `json:"slotIndex"`
	Time        string `json:"time"`
	Activity    string `json:"activity"`
	SubjectCode string `json:"subjectCode"`
	TeacherID   string `json:"teacherId,omitempty"`
	Room        string `json:"room,omitempty"`
	Anomaly     bool   `json:"anomaly,omitempty"`
}

// Export flattens every section grid into allocation records, in section, day and slot order.
// It never mutates the board, so repeated calls return equal slices.
func Export(b *Board) []Allocation {
	var records []Allocation
	for _, section := range b.sections {
		grid := b.grids[section.Name]
		batch1, batch2 := section.Batches()
		for day, dayName := range b.layout.days {
			for slot, label := range b.layout.slots {
				if b.layout.blocked[slot] {
					continue
				}
				occ := grid.cells[day][slot]
				base := Allocation{
					Day:       dayName,
					Section:   section.Name,
					Branch:    section.Branch,
					SlotIndex: slot,
					Time:      label,
				}
				switch occ.Kind {
				case OccupantTheory:
					rec := base
					rec.Batch = batch1 + " & " + batch2
					rec.Activity = ActivityTheory
					rec.SubjectCode = occ.SubjectCode
					rec.TeacherID = occ.TeacherID
					rec.Room = section.Letter + "-Classroom"
					records = append(records, rec)
				case OccupantLab:
					for _, entry := range occ.Entries {
						rec := base
						rec.Batch = entry.Batch
						rec.Activity = ActivityLab
						rec.SubjectCode = entry.SubjectCode
						rec.TeacherID = entry.TeacherID
						rec.Room = entry.Room
						records = append(records, rec)
					}
				case OccupantAnomaly:
					for _, entry := range occ.Entries {
						rec := base
						rec.Batch = entry.Batch
						rec.Activity = ActivityUnassigned
						rec.SubjectCode = entry.SubjectCode
						rec.Anomaly = true
						records = append(records, rec)
					}
				}
			}
		}
	}
	return records
}
