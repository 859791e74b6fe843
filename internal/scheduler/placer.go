package scheduler

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// TheoryProjectPlacer greedily spreads theory and project sessions of one section across the week.
type TheoryProjectPlacer struct {
	board  *Board
	rng    *rand.Rand
	logger *zap.Logger
}

// NewTheoryProjectPlacer binds a placer to a board and the run's random source.
func NewTheoryProjectPlacer(board *Board, rng *rand.Rand, logger *zap.Logger) *TheoryProjectPlacer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TheoryProjectPlacer{board: board, rng: rng, logger: logger}
}

// PlaceSection places every session of the given subjects and returns how many sessions were dropped.
func (p *TheoryProjectPlacer) PlaceSection(section Section, subjects []Subject) int {
	order := make([]Subject, len(subjects))
	copy(order, subjects)
	p.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	load := p.board.dayLoad(section.Name)
	dropped := 0
	for _, subject := range order {
		usedDays := make(map[int]bool)
		remaining := sessionsFor(subject)
		for remaining > 0 {
			day, ok := p.pickSpreadDay(section.Name, subject.TeacherID, load, usedDays)
			if !ok {
				day, ok = p.pickAnyDay(section.Name, subject.TeacherID)
			}
			if !ok {
				break
			}
			free := p.freeSlots(section.Name, day, subject.TeacherID)
			slot := free[p.rng.Intn(len(free))]
			p.board.Place(section.Name, day, slot, subject.Code, subject.TeacherID)
			load[day]++
			usedDays[day] = true
			remaining--
		}
		if remaining > 0 {
			dropped += remaining
			p.logger.Debug("subject short of sessions",
				zap.String("section", section.Name),
				zap.String("subject", subject.Code),
				zap.Int("missing", remaining),
			)
		}
	}
	return dropped
}

// pickSpreadDay ranks days by current load (stable on weekday order) and skips days the subject already uses.
func (p *TheoryProjectPlacer) pickSpreadDay(section, teacherID string, load []int, usedDays map[int]bool) (int, bool) {
	ranked := make([]int, len(load))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return load[ranked[i]] < load[ranked[j]]
	})
	for _, day := range ranked {
		if usedDays[day] {
			continue
		}
		if len(p.freeSlots(section, day, teacherID)) > 0 {
			return day, true
		}
	}
	return 0, false
}

func (p *TheoryProjectPlacer) pickAnyDay(section, teacherID string) (int, bool) {
	for day := range p.board.layout.days {
		if len(p.freeSlots(section, day, teacherID)) > 0 {
			return day, true
		}
	}
	return 0, false
}

func (p *TheoryProjectPlacer) freeSlots(section string, day int, teacherID string) []int {
	var slots []int
	for slot := range p.board.layout.slots {
		if p.board.IsFree(section, day, slot, teacherID) {
			slots = append(slots, slot)
		}
	}
	return slots
}
