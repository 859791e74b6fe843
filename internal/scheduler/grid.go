package scheduler

// OccupantKind tags what a grid cell holds.
type OccupantKind int

const (
	OccupantEmpty OccupantKind = iota
	OccupantTheory
	OccupantLab
	// OccupantLabContinuation fills the second half of a lab double period.
	OccupantLabContinuation
	// OccupantAnomaly marks a lab session that only found an empty window, without rooms or teachers.
	OccupantAnomaly
)

// LabEntry maps one batch onto a room and lab subject inside a lab cell.
type LabEntry struct {
	Batch       string `json:"batch"`
	Room        string `json:"room,omitempty"`
	SubjectCode string `json:"subjectCode"`
	TeacherID   string `json:"teacherId,omitempty"`
}

// Occupant is the content of one grid cell.
type Occupant struct {
	Kind        OccupantKind
	SubjectCode string
	TeacherID   string
	Entries     []LabEntry
}

// IsEmpty reports whether the cell can take a placement.
func (o Occupant) IsEmpty() bool {
	return o.Kind == OccupantEmpty
}

func (o Occupant) holdsLab() bool {
	return o.Kind == OccupantLab || o.Kind == OccupantLabContinuation || o.Kind == OccupantAnomaly
}

// SlotGrid is the day × slot table of one section.
type SlotGrid struct {
	section Section
	cells   [][]Occupant
}

func newSlotGrid(section Section, l *layout) *SlotGrid {
	cells := make([][]Occupant, len(l.days))
	for d := range cells {
		cells[d] = make([]Occupant, len(l.slots))
	}
	return &SlotGrid{section: section, cells: cells}
}

// Board holds every section grid of a run together with the shared teacher ledger.
type Board struct {
	layout   *layout
	sections []Section
	grids    map[string]*SlotGrid
	ledger   *TeacherLedger
}

func newBoard(l *layout, sections []Section, ledger *TeacherLedger) *Board {
	b := &Board{
		layout:   l,
		sections: sections,
		grids:    make(map[string]*SlotGrid, len(sections)),
		ledger:   ledger,
	}
	for _, section := range sections {
		b.grids[section.Name] = newSlotGrid(section, l)
	}
	return b
}

// At returns the occupant of a cell; unknown sections and out-of-range cells read as empty.
func (b *Board) At(section string, day, slot int) Occupant {
	grid := b.grids[section]
	if grid == nil || !b.layout.inRange(day, slot) {
		return Occupant{}
	}
	return grid.cells[day][slot]
}

// IsFree reports whether a cell can take a placement and, when teacherID is set,
// whether that teacher is free at day/slot everywhere in the run.
func (b *Board) IsFree(section string, day, slot int, teacherID string) bool {
	grid := b.grids[section]
	if grid == nil || !b.layout.inRange(day, slot) || b.layout.blocked[slot] {
		return false
	}
	if !grid.cells[day][slot].IsEmpty() {
		return false
	}
	return !b.ledger.IsBusy(teacherID, day, slot)
}

// Place writes a theory/project occupant. Callers check IsFree first.
func (b *Board) Place(section string, day, slot int, subjectCode, teacherID string) {
	b.grids[section].cells[day][slot] = Occupant{Kind: OccupantTheory, SubjectCode: subjectCode, TeacherID: teacherID}
	b.ledger.Reserve(teacherID, day, slot, section)
}

// clear empties a cell and releases every teacher it held.
func (b *Board) clear(section string, day, slot int) Occupant {
	grid := b.grids[section]
	prev := grid.cells[day][slot]
	grid.cells[day][slot] = Occupant{}
	b.ledger.Release(prev.TeacherID, day, slot)
	for _, entry := range prev.Entries {
		if prev.Kind == OccupantLab {
			b.ledger.Release(entry.TeacherID, day, slot)
		}
	}
	return prev
}

// windowFree checks both cells of a lab window for the section and every teacher.
func (b *Board) windowFree(section string, day, start int, teachers []string) bool {
	for _, slot := range []int{start, start + 1} {
		if !b.IsFree(section, day, slot, "") {
			return false
		}
		for _, teacherID := range teachers {
			if b.ledger.IsBusy(teacherID, day, slot) {
				return false
			}
		}
	}
	return true
}

func (b *Board) placeLab(section string, day, start int, entries []LabEntry) {
	grid := b.grids[section]
	grid.cells[day][start] = Occupant{Kind: OccupantLab, Entries: append([]LabEntry(nil), entries...)}
	grid.cells[day][start+1] = Occupant{Kind: OccupantLabContinuation}
	for _, teacherID := range labTeachers(entries) {
		b.ledger.Reserve(teacherID, day, start, section)
		b.ledger.Reserve(teacherID, day, start+1, section)
	}
}

func (b *Board) placeAnomaly(section string, day, start int, entries []LabEntry) {
	marked := make([]LabEntry, len(entries))
	for i, entry := range entries {
		marked[i] = LabEntry{Batch: entry.Batch, SubjectCode: entry.SubjectCode}
	}
	grid := b.grids[section]
	grid.cells[day][start] = Occupant{Kind: OccupantAnomaly, Entries: marked}
	grid.cells[day][start+1] = Occupant{Kind: OccupantLabContinuation}
}

// relocateTheory moves a theory occupant to the first free cell (weekday then slot order) of the same
// section where its teacher is also free, skipping cells rejected by avoid. It reports whether the move happened.
func (b *Board) relocateTheory(section string, day, slot int, avoid func(day, slot int) bool) bool {
	occ := b.At(section, day, slot)
	if occ.Kind != OccupantTheory {
		return false
	}
	for d := range b.layout.days {
		for s := range b.layout.slots {
			if d == day && s == slot {
				continue
			}
			if avoid != nil && avoid(d, s) {
				continue
			}
			if b.IsFree(section, d, s, occ.TeacherID) {
				b.clear(section, day, slot)
				b.Place(section, d, s, occ.SubjectCode, occ.TeacherID)
				return true
			}
		}
	}
	return false
}

// dayLoad counts placed sessions of one section per day; continuation cells are not sessions.
func (b *Board) dayLoad(section string) []int {
	load := make([]int, len(b.layout.days))
	grid := b.grids[section]
	for d := range grid.cells {
		for _, occ := range grid.cells[d] {
			if occ.Kind != OccupantEmpty && occ.Kind != OccupantLabContinuation {
				load[d]++
			}
		}
	}
	return load
}

func (b *Board) countTheory(section, subjectCode string) int {
	count := 0
	grid := b.grids[section]
	for d := range grid.cells {
		for _, occ := range grid.cells[d] {
			if occ.Kind == OccupantTheory && occ.SubjectCode == subjectCode {
				count++
			}
		}
	}
	return count
}

func labTeachers(entries []LabEntry) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.TeacherID == "" || seen[entry.TeacherID] {
			continue
		}
		seen[entry.TeacherID] = true
		ids = append(ids, entry.TeacherID)
	}
	return ids
}
