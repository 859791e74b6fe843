package scheduler

import "sort"

type slotKey struct {
	Day  int
	Slot int
}

// TeacherLedger records which section every teacher is committed to at each day/slot.
// One ledger is shared by all sections of a run and must not be mutated concurrently;
// callers that parallelise placement have to serialise each check-then-place step.
type TeacherLedger struct {
	busy map[string]map[slotKey]string
}

// NewTeacherLedger returns an empty ledger.
func NewTeacherLedger() *TeacherLedger {
	return &TeacherLedger{busy: make(map[string]map[slotKey]string)}
}

// IsBusy reports whether the teacher is committed at day/slot in any section.
func (l *TeacherLedger) IsBusy(teacherID string, day, slot int) bool {
	_, ok := l.SectionAt(teacherID, day, slot)
	return ok
}

// SectionAt returns the section holding the teacher at day/slot.
func (l *TeacherLedger) SectionAt(teacherID string, day, slot int) (string, bool) {
	if teacherID == "" {
		return "", false
	}
	section, ok := l.busy[teacherID][slotKey{Day: day, Slot: slot}]
	return section, ok
}

// Reserve commits the teacher at day/slot for section.
func (l *TeacherLedger) Reserve(teacherID string, day, slot int, section string) {
	if teacherID == "" {
		return
	}
	if l.busy[teacherID] == nil {
		l.busy[teacherID] = make(map[slotKey]string)
	}
	l.busy[teacherID][slotKey{Day: day, Slot: slot}] = section
}

// Release frees the teacher at day/slot.
func (l *TeacherLedger) Release(teacherID string, day, slot int) {
	if l.busy[teacherID] == nil {
		return
	}
	delete(l.busy[teacherID], slotKey{Day: day, Slot: slot})
}

// Load returns how many slots the teacher is committed to.
func (l *TeacherLedger) Load(teacherID string) int {
	return len(l.busy[teacherID])
}

// Teachers lists every teacher with at least one commitment, sorted.
func (l *TeacherLedger) Teachers() []string {
	ids := make([]string, 0, len(l.busy))
	for id, slots := range l.busy {
		if len(slots) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
