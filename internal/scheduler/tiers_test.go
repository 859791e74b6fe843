package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tierSettings() Settings {
	return Settings{
		Days:           []string{"MON", "TUE"},
		TimeSlots:      []string{"s0", "s1", "s2", "s3"},
		LabStarts:      []int{0},
		BranchSections: []BranchSections{{Branch: "CSE", Letters: []string{"A", "B"}}},
	}
}

type tierFixture struct {
	board *Board
	stats *Stats
	labs  *LabPairScheduler
}

func newTierFixture(t *testing.T) tierFixture {
	t.Helper()
	return newTierFixtureWith(t, tierSettings())
}

func newTierFixtureWith(t *testing.T, settings Settings) tierFixture {
	t.Helper()
	require.NoError(t, settings.Validate())
	board := newBoard(newLayout(settings), settings.sections(), NewTeacherLedger())
	stats := &Stats{}
	return tierFixture{
		board: board,
		stats: stats,
		labs:  NewLabPairScheduler(board, NewBatchLabDays(), settings, stats, nil),
	}
}

func labSession(day int) LabSession {
	return LabSession{Day: day, PairDay: -1, Entries: []LabEntry{
		{Batch: "A1", Room: "CSE_Lab1", SubjectCode: "CSE_L1", TeacherID: "L"},
		{Batch: "A2", Room: "CSE_Lab2", SubjectCode: "CSE_L2", TeacherID: "M"},
	}}
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "direct", TierDirect.String())
	assert.Equal(t, "relocation", TierRelocation.String())
	assert.Equal(t, "forced", TierForced.String())
	assert.Equal(t, "marker", TierMarker.String())
	assert.Equal(t, "unknown", Tier(0).String())
}

func TestPlaceDirect(t *testing.T) {
	f := newTierFixture(t)

	tier, _, ok := f.labs.place("CSE-A", labSession(1))
	require.True(t, ok)
	assert.Equal(t, TierDirect, tier)

	assert.Equal(t, OccupantLab, f.board.At("CSE-A", 1, 0).Kind)
	assert.Equal(t, OccupantLabContinuation, f.board.At("CSE-A", 1, 1).Kind)
	for _, teacherID := range []string{"L", "M"} {
		assert.True(t, f.board.ledger.IsBusy(teacherID, 1, 0))
		assert.True(t, f.board.ledger.IsBusy(teacherID, 1, 1))
	}
	assert.True(t, f.labs.batchDays.Has("CSE-A", "A1", 1))
	assert.True(t, f.labs.batchDays.Has("CSE-A", "A2", 1))
	assert.Equal(t, 1, f.stats.LabDirect)
	assert.Equal(t, 1, f.stats.LabSessions)
}

func TestPlaceRelocatedMovesBlockingTheory(t *testing.T) {
	f := newTierFixture(t)
	f.board.Place("CSE-A", 0, 0, "CSE_DS", "P")
	f.board.Place("CSE-A", 1, 0, "CSE_OS", "Q")
	f.board.Place("CSE-A", 1, 1, "CSE_CN", "Q")

	tier, _, ok := f.labs.place("CSE-A", labSession(0))
	require.True(t, ok)
	assert.Equal(t, TierRelocation, tier)

	assert.Equal(t, OccupantLab, f.board.At("CSE-A", 0, 0).Kind)
	moved := f.board.At("CSE-A", 0, 2)
	assert.Equal(t, OccupantTheory, moved.Kind)
	assert.Equal(t, "CSE_DS", moved.SubjectCode)
	assert.True(t, f.board.ledger.IsBusy("P", 0, 2))
	assert.False(t, f.board.ledger.IsBusy("P", 0, 0))
	assert.Equal(t, 1, f.stats.Relocations)
	assert.Equal(t, 1, f.stats.LabRelocated)
}

func TestPlaceRelocatedUsesAnotherDayFirst(t *testing.T) {
	f := newTierFixture(t)
	f.board.Place("CSE-A", 0, 1, "CSE_DS", "P")

	tier, _, ok := f.labs.place("CSE-A", labSession(0))
	require.True(t, ok)
	assert.Equal(t, TierRelocation, tier)
	assert.Equal(t, OccupantLab, f.board.At("CSE-A", 1, 0).Kind)
	assert.True(t, f.labs.batchDays.Has("CSE-A", "A1", 1))
	assert.Zero(t, f.stats.Relocations)
}

func TestPlaceRelocatedFreesLabTeacherInOtherSection(t *testing.T) {
	f := newTierFixture(t)
	// L teaches CSE-B during the only window of both days.
	f.board.Place("CSE-B", 0, 0, "CSE_DS", "L")
	f.board.Place("CSE-B", 1, 1, "CSE_OS", "L")

	tier, _, ok := f.labs.place("CSE-A", labSession(0))
	require.True(t, ok)
	assert.Equal(t, TierRelocation, tier)

	assert.Equal(t, OccupantLab, f.board.At("CSE-A", 0, 0).Kind)
	owner, busy := f.board.ledger.SectionAt("L", 0, 0)
	assert.True(t, busy)
	assert.Equal(t, "CSE-A", owner)
	assert.Equal(t, 1, f.board.countTheory("CSE-B", "CSE_DS"))
	assert.True(t, f.board.At("CSE-B", 0, 0).IsEmpty())
}

func TestPlaceForcedEvictsTheoryThatCannotMove(t *testing.T) {
	f := newTierFixture(t)
	f.board.Place("CSE-A", 0, 0, "CSE_DS", "P")
	f.board.Place("CSE-A", 0, 2, "CSE_DS", "P")
	f.board.Place("CSE-A", 0, 3, "CSE_DS", "P")
	for slot := 0; slot < 4; slot++ {
		f.board.Place("CSE-A", 1, slot, "CSE_OS", "Q")
	}

	tier, _, ok := f.labs.place("CSE-A", labSession(0))
	require.True(t, ok)
	assert.Equal(t, TierForced, tier)

	assert.Equal(t, OccupantLab, f.board.At("CSE-A", 0, 0).Kind)
	assert.Equal(t, 2, f.board.countTheory("CSE-A", "CSE_DS"))
	assert.False(t, f.board.ledger.IsBusy("P", 0, 0))
	assert.Equal(t, 1, f.stats.EvictedSessions)
	assert.Equal(t, 1, f.stats.LabForced)
}

func TestPlaceForcedDropsLabTeacherClassInFullSection(t *testing.T) {
	f := newTierFixture(t)
	for day := 0; day < 2; day++ {
		for slot := 0; slot < 4; slot++ {
			f.board.Place("CSE-A", day, slot, "CSE_SEM", "")
		}
		f.board.Place("CSE-B", day, 0, "CSE_DS", "L")
		for slot := 1; slot < 4; slot++ {
			f.board.Place("CSE-B", day, slot, "CSE_OS", "Q")
		}
	}

	tier, day, ok := f.labs.place("CSE-A", labSession(0))
	require.True(t, ok)
	assert.Equal(t, TierForced, tier)
	assert.Equal(t, 0, day)

	assert.Equal(t, OccupantLab, f.board.At("CSE-A", 0, 0).Kind)
	assert.Equal(t, OccupantLabContinuation, f.board.At("CSE-A", 0, 1).Kind)
	assert.True(t, f.board.At("CSE-B", 0, 0).IsEmpty())
	assert.Equal(t, OccupantTheory, f.board.At("CSE-B", 1, 0).Kind)
	owner, busy := f.board.ledger.SectionAt("L", 0, 0)
	require.True(t, busy)
	assert.Equal(t, "CSE-A", owner)
	assert.Equal(t, 3, f.stats.EvictedSessions)
	assert.Equal(t, 1, f.stats.LabForced)
	assertNoDoubleBooking(t, f.board)
}

func TestPlaceRelocatedTriesPairDayLast(t *testing.T) {
	settings := tierSettings()
	settings.Days = []string{"MON", "TUE", "WED"}
	f := newTierFixtureWith(t, settings)
	f.board.Place("CSE-A", 0, 1, "CSE_DS", "P")

	session := labSession(0)
	session.PairDay = 1
	tier, day, ok := f.labs.place("CSE-A", session)
	require.True(t, ok)
	assert.Equal(t, TierRelocation, tier)
	assert.Equal(t, 2, day)
	assert.Equal(t, OccupantLab, f.board.At("CSE-A", 2, 0).Kind)
	assert.True(t, f.board.At("CSE-A", 1, 0).IsEmpty())
}

func TestPlaceMarkerAvoidsPairDay(t *testing.T) {
	f := newTierFixture(t)
	other := []LabEntry{{Batch: "B1", Room: "CSE_Lab1", SubjectCode: "CSE_L9", TeacherID: "L"}}
	f.board.placeLab("CSE-B", 0, 0, other)
	f.board.placeLab("CSE-B", 1, 0, other)

	session := labSession(0)
	session.PairDay = 0
	tier, day, ok := f.labs.place("CSE-A", session)
	require.True(t, ok)
	assert.Equal(t, TierMarker, tier)
	assert.Equal(t, 1, day)
	assert.Equal(t, OccupantAnomaly, f.board.At("CSE-A", 1, 0).Kind)
}

func TestDayOrder(t *testing.T) {
	settings := tierSettings()
	settings.Days = []string{"MON", "TUE", "WED", "THU"}
	f := newTierFixtureWith(t, settings)

	assert.Equal(t, []int{2, 0, 3, 1}, f.labs.dayOrder(2, 1))
	assert.Equal(t, []int{0, 2, 3, 1}, f.labs.dayOrder(-1, 1))
	assert.Equal(t, []int{1, 0, 2, 3}, f.labs.dayOrder(1, -1))
	assert.Equal(t, []int{1, 0, 2, 3}, f.labs.dayOrder(1, 1))
}

func TestPlaceMarkerWhenTeachersAreLockedInLabs(t *testing.T) {
	f := newTierFixture(t)
	other := []LabEntry{{Batch: "B1", Room: "CSE_Lab1", SubjectCode: "CSE_L9", TeacherID: "L"}}
	f.board.placeLab("CSE-B", 0, 0, other)
	f.board.placeLab("CSE-B", 1, 0, other)

	tier, _, ok := f.labs.place("CSE-A", labSession(0))
	require.True(t, ok)
	assert.Equal(t, TierMarker, tier)

	marker := f.board.At("CSE-A", 0, 0)
	assert.Equal(t, OccupantAnomaly, marker.Kind)
	require.Len(t, marker.Entries, 2)
	assert.Empty(t, marker.Entries[0].Room)
	assert.Empty(t, marker.Entries[0].TeacherID)
	assert.Equal(t, OccupantLabContinuation, f.board.At("CSE-A", 0, 1).Kind)

	owner, _ := f.board.ledger.SectionAt("L", 0, 0)
	assert.Equal(t, "CSE-B", owner)
	assert.False(t, f.board.ledger.IsBusy("M", 0, 0))
	assert.Equal(t, 1, f.stats.LabAnomalies)

	records := Export(f.board)
	var unassigned []Allocation
	for _, record := range records {
		if record.Section == "CSE-A" {
			unassigned = append(unassigned, record)
		}
	}
	require.Len(t, unassigned, 2)
	for _, record := range unassigned {
		assert.Equal(t, ActivityUnassigned, record.Activity)
		assert.True(t, record.Anomaly)
	}
}

func TestPlaceFailsWithoutAnyEmptyWindow(t *testing.T) {
	f := newTierFixture(t)
	other := []LabEntry{{Batch: "A1", Room: "CSE_Lab1", SubjectCode: "CSE_L9", TeacherID: "Z"}}
	f.board.placeLab("CSE-A", 0, 0, other)
	f.board.placeLab("CSE-A", 1, 0, other)

	_, _, ok := f.labs.place("CSE-A", labSession(0))
	assert.False(t, ok)
	assert.Zero(t, f.stats.LabSessions)
}

func TestWindowGuard(t *testing.T) {
	guard := windowGuard(2, 3)
	assert.True(t, guard(2, 3))
	assert.True(t, guard(2, 4))
	assert.False(t, guard(2, 5))
	assert.False(t, guard(1, 3))
}
