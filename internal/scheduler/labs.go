package scheduler

import (
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// BatchLabDays tracks the days on which each batch already has a lab. It only steers day selection.
type BatchLabDays struct {
	days map[string]map[int]bool
}

// NewBatchLabDays returns an empty tracker.
func NewBatchLabDays() *BatchLabDays {
	return &BatchLabDays{days: make(map[string]map[int]bool)}
}

func batchKey(section, batch string) string {
	return section + "/" + batch
}

// Add records a lab day for the batch.
func (b *BatchLabDays) Add(section, batch string, day int) {
	key := batchKey(section, batch)
	if b.days[key] == nil {
		b.days[key] = make(map[int]bool)
	}
	b.days[key][day] = true
}

// Has reports whether the batch has a lab on day.
func (b *BatchLabDays) Has(section, batch string, day int) bool {
	return b.days[batchKey(section, batch)][day]
}

// LabSession is one double period in which each listed batch attends a lab.
// PairDay is the day of the other session of the same pair, or -1.
type LabSession struct {
	Day     int
	PairDay int
	Entries []LabEntry
}

type labPair struct {
	a Subject
	b *Subject
}

// LabPairScheduler places the paired, batch-swapped lab sessions of a section.
type LabPairScheduler struct {
	board     *Board
	batchDays *BatchLabDays
	pools     map[string][]string
	preferred []string
	stats     *Stats
	logger    *zap.Logger
}

// NewLabPairScheduler binds a lab scheduler to a board.
func NewLabPairScheduler(board *Board, batchDays *BatchLabDays, settings Settings, stats *Stats, logger *zap.Logger) *LabPairScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = &Stats{}
	}
	pools := make(map[string][]string, len(settings.LabRoomPools))
	for branch, rooms := range settings.LabRoomPools {
		pools[strings.ToUpper(strings.TrimSpace(branch))] = rooms
	}
	return &LabPairScheduler{
		board:     board,
		batchDays: batchDays,
		pools:     pools,
		preferred: settings.PreferredLabDays,
		stats:     stats,
		logger:    logger,
	}
}

// ScheduleSection pairs the branch labs and places two swap sessions per pair.
func (s *LabPairScheduler) ScheduleSection(section Section, labs []Subject) {
	if len(labs) == 0 {
		return
	}
	rooms := expandRoomPool(section.Branch, s.pools[section.Branch], len(labs))
	batch1, batch2 := section.Batches()
	candidates := s.candidateDays()
	if len(candidates) == 0 {
		return
	}

	cursor := 0
	for _, pair := range pairLabs(labs) {
		idx1 := s.findDay(section.Name, batch1, batch2, candidates, cursor)
		idx2 := s.findDay(section.Name, batch1, batch2, candidates, (idx1+1)%len(candidates))
		if idx2 == idx1 && len(candidates) > 1 {
			idx2 = (idx1 + 1) % len(candidates)
		}
		cursor = (idx2 + 1) % len(candidates)
		day1, day2 := candidates[idx1], candidates[idx2]

		picker := newRoomPicker(section.Branch, rooms)
		sessions := buildSessions(pair, batch1, batch2, day1, day2, picker)
		landed := -1
		for i, session := range sessions {
			if i > 0 {
				session = followSibling(session, sessions[0].Day, landed)
			}
			tier, day, ok := s.place(section.Name, session)
			if !ok {
				s.stats.DroppedLabSessions++
				s.logger.Warn("lab session could not be placed",
					zap.String("section", section.Name),
					zap.String("day", s.board.layout.days[session.Day]),
				)
				continue
			}
			if i == 0 {
				landed = day
			}
			if tier != TierDirect {
				s.logger.Info("lab session escalated",
					zap.String("section", section.Name),
					zap.String("tier", tier.String()),
				)
			}
		}
	}
}

// followSibling points the second session of a pair at the day the first one took. When the first
// session landed on this session's day, the two trade days.
func followSibling(session LabSession, planned, landed int) LabSession {
	if landed < 0 {
		session.PairDay = -1
		return session
	}
	session.PairDay = landed
	if session.Day == landed {
		session.Day = planned
	}
	return session
}

// candidateDays lists preferred lab days that exist in the week first, then the remaining weekdays.
func (s *LabPairScheduler) candidateDays() []int {
	var days []int
	taken := make(map[int]bool)
	for _, name := range s.preferred {
		idx, ok := s.board.layout.dayIndex[strings.ToUpper(strings.TrimSpace(name))]
		if !ok || taken[idx] {
			continue
		}
		taken[idx] = true
		days = append(days, idx)
	}
	for idx := range s.board.layout.days {
		if !taken[idx] {
			days = append(days, idx)
		}
	}
	return days
}

// findDay returns the position in candidates of the first day, scanning cyclically from start, on which
// neither batch has a lab yet. Without such a day it falls back to the fewest combined lab days.
func (s *LabPairScheduler) findDay(section, batch1, batch2 string, candidates []int, start int) int {
	n := len(candidates)
	for offset := 0; offset < n; offset++ {
		pos := (start + offset) % n
		day := candidates[pos]
		if !s.batchDays.Has(section, batch1, day) && !s.batchDays.Has(section, batch2, day) {
			return pos
		}
	}
	best, bestScore := 0, -1
	for pos, day := range candidates {
		score := 0
		if s.batchDays.Has(section, batch1, day) {
			score++
		}
		if s.batchDays.Has(section, batch2, day) {
			score++
		}
		if bestScore < 0 || score < bestScore {
			best, bestScore = pos, score
		}
	}
	return best
}

func pairLabs(labs []Subject) []labPair {
	var pairs []labPair
	for i := 0; i < len(labs); i += 2 {
		pair := labPair{a: labs[i]}
		if i+1 < len(labs) {
			next := labs[i+1]
			pair.b = &next
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// buildSessions lays out the batch swap: on day1 batch1 takes lab A and batch2 lab B, on day2 they trade.
// A lone lab is visited by batch1 on day1 and batch2 on day2 in two different rooms.
func buildSessions(pair labPair, batch1, batch2 string, day1, day2 int, picker *roomPicker) []LabSession {
	a := pair.a
	roomA := picker.pick(labLabel(a))
	if pair.b == nil {
		roomB := picker.pick(labLabel(a))
		return []LabSession{
			{Day: day1, PairDay: day2, Entries: []LabEntry{{Batch: batch1, Room: roomA, SubjectCode: a.Code, TeacherID: a.TeacherID}}},
			{Day: day2, PairDay: day1, Entries: []LabEntry{{Batch: batch2, Room: roomB, SubjectCode: a.Code, TeacherID: a.TeacherID}}},
		}
	}
	b := *pair.b
	roomB := picker.pick(labLabel(b))
	return []LabSession{
		{Day: day1, PairDay: day2, Entries: []LabEntry{
			{Batch: batch1, Room: roomA, SubjectCode: a.Code, TeacherID: a.TeacherID},
			{Batch: batch2, Room: roomB, SubjectCode: b.Code, TeacherID: b.TeacherID},
		}},
		{Day: day2, PairDay: day1, Entries: []LabEntry{
			{Batch: batch1, Room: roomB, SubjectCode: b.Code, TeacherID: b.TeacherID},
			{Batch: batch2, Room: roomA, SubjectCode: a.Code, TeacherID: a.TeacherID},
		}},
	}
}

func labLabel(subject Subject) string {
	if strings.TrimSpace(subject.Name) != "" {
		return subject.Name
	}
	return subject.Code
}

// expandRoomPool pads the configured rooms so every lab of the branch can get two distinct rooms.
func expandRoomPool(branch string, pool []string, labCount int) []string {
	rooms := append([]string(nil), pool...)
	want := 2 * labCount
	if want < 2 {
		want = 2
	}
	if len(rooms) >= want {
		return rooms
	}
	base := branch + "_Lab"
	if len(rooms) > 0 {
		base = rooms[0]
	}
	existing := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		existing[room] = true
	}
	for idx := 1; len(rooms) < want; idx++ {
		candidate := fmt.Sprintf("%s_%d", base, idx)
		if existing[candidate] {
			continue
		}
		existing[candidate] = true
		rooms = append(rooms, candidate)
	}
	return rooms
}

type roomPicker struct {
	branch string
	pool   []string
	used   map[string]bool
}

func newRoomPicker(branch string, pool []string) *roomPicker {
	return &roomPicker{branch: branch, pool: pool, used: make(map[string]bool)}
}

// pick prefers an unused room whose name contains the first six letters of label.
func (r *roomPicker) pick(label string) string {
	key := roomKey(label)
	if key != "" {
		for _, room := range r.pool {
			if !r.used[room] && strings.Contains(strings.ToLower(room), key) {
				r.used[room] = true
				return room
			}
		}
	}
	for _, room := range r.pool {
		if !r.used[room] {
			r.used[room] = true
			return room
		}
	}
	for idx := 1; ; idx++ {
		candidate := fmt.Sprintf("%s_Lab_%d", r.branch, idx)
		if !r.used[candidate] {
			r.used[candidate] = true
			return candidate
		}
	}
}

func roomKey(label string) string {
	var b strings.Builder
	for _, r := range label {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	key := b.String()
	if len(key) > 6 {
		key = key[:6]
	}
	return key
}
