package scheduler

// Tier is one escalation level of lab placement.
type Tier int

const (
	TierDirect Tier = iota + 1
	TierRelocation
	TierForced
	TierMarker
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierRelocation:
		return "relocation"
	case TierForced:
		return "forced"
	case TierMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// placementStrategy tries to place a session and returns the day it landed on.
type placementStrategy struct {
	tier Tier
	try  func(section string, session LabSession) (int, bool)
}

func (s *LabPairScheduler) strategies() []placementStrategy {
	return []placementStrategy{
		{tier: TierDirect, try: s.placeDirect},
		{tier: TierRelocation, try: s.placeRelocated},
		{tier: TierForced, try: s.placeForced},
		{tier: TierMarker, try: s.placeMarker},
	}
}

// place runs the strategies in order; the first success wins and reports the day the session landed on.
func (s *LabPairScheduler) place(section string, session LabSession) (Tier, int, bool) {
	for _, strategy := range s.strategies() {
		day, ok := strategy.try(section, session)
		if !ok {
			continue
		}
		for _, entry := range session.Entries {
			s.batchDays.Add(section, entry.Batch, day)
		}
		s.stats.recordTier(strategy.tier)
		return strategy.tier, day, true
	}
	return 0, 0, false
}

// placeDirect uses the first lab window on the session day that is free for the section and every lab teacher.
func (s *LabPairScheduler) placeDirect(section string, session LabSession) (int, bool) {
	teachers := labTeachers(session.Entries)
	for _, start := range s.board.layout.labStarts {
		if s.board.windowFree(section, session.Day, start, teachers) {
			s.board.placeLab(section, session.Day, start, session.Entries)
			return session.Day, true
		}
	}
	return 0, false
}

// placeRelocated widens the search to every day, and per window tries to move blocking theory classes
// out of the way before retrying the session day. The day of the paired session is tried last.
func (s *LabPairScheduler) placeRelocated(section string, session LabSession) (int, bool) {
	teachers := labTeachers(session.Entries)
	days := s.dayOrder(session.Day, session.PairDay)
	for _, start := range s.board.layout.labStarts {
		for _, day := range days {
			if s.board.windowFree(section, day, start, teachers) {
				s.board.placeLab(section, day, start, session.Entries)
				return day, true
			}
		}
		if s.evictBlockers(section, session.Day, start, teachers) &&
			s.board.windowFree(section, session.Day, start, teachers) {
			s.board.placeLab(section, session.Day, start, session.Entries)
			return session.Day, true
		}
	}
	return 0, false
}

// evictBlockers moves teacher-bound theory classes that sit in the window of this section, and those of the
// lab teachers in other sections, to free slots elsewhere. It reports whether anything moved.
func (s *LabPairScheduler) evictBlockers(section string, day, start int, teachers []string) bool {
	avoid := windowGuard(day, start)
	moved := false
	for _, slot := range []int{start, start + 1} {
		occ := s.board.At(section, day, slot)
		if occ.Kind == OccupantTheory && occ.TeacherID != "" {
			if s.board.relocateTheory(section, day, slot, avoid) {
				s.stats.Relocations++
				moved = true
			}
		}
		for _, teacherID := range teachers {
			owner, busy := s.board.ledger.SectionAt(teacherID, day, slot)
			if !busy {
				continue
			}
			occ := s.board.At(owner, day, slot)
			if occ.Kind != OccupantTheory || occ.TeacherID != teacherID {
				continue
			}
			if s.board.relocateTheory(owner, day, slot, avoid) {
				s.stats.Relocations++
				moved = true
			}
		}
	}
	return moved
}

// placeForced takes the first window on the session day that holds no lab, moves or drops the theory classes
// in it and the lab teachers' theory classes in other sections, and writes the session over it.
// A window is skipped only when a lab teacher is held by a lab elsewhere, so teachers are never double booked.
func (s *LabPairScheduler) placeForced(section string, session LabSession) (int, bool) {
	teachers := labTeachers(session.Entries)
	day := session.Day
	for _, start := range s.board.layout.labStarts {
		if s.board.At(section, day, start).holdsLab() || s.board.At(section, day, start+1).holdsLab() {
			continue
		}
		blockers, ok := s.teacherBlockers(section, day, start, teachers)
		if !ok {
			continue
		}
		avoid := windowGuard(day, start)
		for _, blocker := range blockers {
			s.evict(blocker.section, day, blocker.slot, avoid)
		}
		for _, slot := range []int{start, start + 1} {
			s.evict(section, day, slot, avoid)
		}
		s.board.placeLab(section, day, start, session.Entries)
		return day, true
	}
	return 0, false
}

type blockedCell struct {
	section string
	slot    int
}

// teacherBlockers lists the theory classes that hold a lab teacher in another section during the window.
// It reports false when a teacher is held there by a lab.
func (s *LabPairScheduler) teacherBlockers(section string, day, start int, teachers []string) ([]blockedCell, bool) {
	var blockers []blockedCell
	for _, slot := range []int{start, start + 1} {
		for _, teacherID := range teachers {
			owner, busy := s.board.ledger.SectionAt(teacherID, day, slot)
			if !busy || owner == section {
				continue
			}
			if s.board.At(owner, day, slot).Kind != OccupantTheory {
				return nil, false
			}
			blockers = append(blockers, blockedCell{section: owner, slot: slot})
		}
	}
	return blockers, true
}

// evict moves a theory class out of the window when its teacher is free elsewhere, and drops it otherwise.
func (s *LabPairScheduler) evict(section string, day, slot int, avoid func(int, int) bool) {
	occ := s.board.At(section, day, slot)
	if occ.IsEmpty() {
		return
	}
	if occ.TeacherID != "" && s.board.relocateTheory(section, day, slot, avoid) {
		s.stats.Relocations++
		return
	}
	s.board.clear(section, day, slot)
	s.stats.EvictedSessions++
}

// placeMarker writes an anomaly marker into the first completely empty window of the week, looking at the
// day of the paired session last.
func (s *LabPairScheduler) placeMarker(section string, session LabSession) (int, bool) {
	for _, day := range s.dayOrder(-1, session.PairDay) {
		for _, start := range s.board.layout.labStarts {
			if s.board.At(section, day, start).IsEmpty() && s.board.At(section, day, start+1).IsEmpty() {
				s.board.placeAnomaly(section, day, start, session.Entries)
				s.stats.LabAnomalies++
				return day, true
			}
		}
	}
	return 0, false
}

// dayOrder lists every day of the week starting with first and ending with last; -1 leaves either end in
// weekday order.
func (s *LabPairScheduler) dayOrder(first, last int) []int {
	days := make([]int, 0, len(s.board.layout.days))
	if first >= 0 {
		days = append(days, first)
	}
	for day := range s.board.layout.days {
		if day != first && day != last {
			days = append(days, day)
		}
	}
	if last >= 0 && last != first && last < len(s.board.layout.days) {
		days = append(days, last)
	}
	return days
}

func windowGuard(day, start int) func(int, int) bool {
	return func(d, slot int) bool {
		return d == day && (slot == start || slot == start+1)
	}
}
