package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultBoard() *Board {
	settings := DefaultSettings()
	return newBoard(newLayout(settings), settings.sections(), NewTeacherLedger())
}

func TestTeacherLedger(t *testing.T) {
	ledger := NewTeacherLedger()

	ledger.Reserve("T1", 0, 1, "CSE-A")
	ledger.Reserve("", 0, 1, "CSE-A")

	assert.True(t, ledger.IsBusy("T1", 0, 1))
	assert.False(t, ledger.IsBusy("T1", 0, 2))
	assert.False(t, ledger.IsBusy("", 0, 1))
	section, ok := ledger.SectionAt("T1", 0, 1)
	assert.True(t, ok)
	assert.Equal(t, "CSE-A", section)
	assert.Equal(t, 1, ledger.Load("T1"))
	assert.Equal(t, []string{"T1"}, ledger.Teachers())

	ledger.Release("T1", 0, 1)
	ledger.Release("T9", 0, 1)
	assert.False(t, ledger.IsBusy("T1", 0, 1))
	assert.Empty(t, ledger.Teachers())
}

func TestBoardIsFree(t *testing.T) {
	board := newDefaultBoard()

	assert.True(t, board.IsFree("CSE-A", 0, 0, "T1"))
	assert.False(t, board.IsFree("CSE-A", 0, 2, ""), "blocked slot")
	assert.False(t, board.IsFree("CSE-A", 9, 0, ""), "day out of range")
	assert.False(t, board.IsFree("CSE-Z", 0, 0, ""), "unknown section")

	board.Place("CSE-A", 0, 0, "CSE_DS", "T1")
	assert.False(t, board.IsFree("CSE-A", 0, 0, ""))
	assert.False(t, board.IsFree("CSE-B", 0, 0, "T1"), "teacher busy elsewhere")
	assert.True(t, board.IsFree("CSE-B", 0, 0, "T2"))
	assert.True(t, board.IsFree("CSE-B", 0, 0, ""))
}

func TestBoardAtOutOfRangeReadsEmpty(t *testing.T) {
	board := newDefaultBoard()

	assert.True(t, board.At("CSE-A", -1, 0).IsEmpty())
	assert.True(t, board.At("CSE-A", 0, 42).IsEmpty())
	assert.True(t, board.At("NOPE", 0, 0).IsEmpty())
}

func TestBoardRelocateTheoryHonoursAvoid(t *testing.T) {
	board := newDefaultBoard()
	board.Place("CSE-A", 0, 0, "CSE_DS", "T1")

	moved := board.relocateTheory("CSE-A", 0, 0, func(day, slot int) bool { return day == 0 })
	require.True(t, moved)
	assert.True(t, board.At("CSE-A", 0, 0).IsEmpty())

	// First cell of TUE.
	occ := board.At("CSE-A", 1, 0)
	assert.Equal(t, OccupantTheory, occ.Kind)
	assert.Equal(t, "CSE_DS", occ.SubjectCode)
	owner, _ := board.ledger.SectionAt("T1", 1, 0)
	assert.Equal(t, "CSE-A", owner)
	assert.False(t, board.ledger.IsBusy("T1", 0, 0))
}

func TestBoardRelocateTheoryIgnoresLabs(t *testing.T) {
	board := newDefaultBoard()
	board.placeLab("CSE-A", 0, 0, []LabEntry{{Batch: "A1", Room: "R", SubjectCode: "L", TeacherID: "L1"}})

	assert.False(t, board.relocateTheory("CSE-A", 0, 0, nil))
	assert.False(t, board.relocateTheory("CSE-A", 0, 1, nil))
}

func TestBoardDayLoadSkipsContinuations(t *testing.T) {
	board := newDefaultBoard()
	board.Place("CSE-A", 0, 3, "CSE_DS", "T1")
	board.placeLab("CSE-A", 0, 0, []LabEntry{{Batch: "A1", SubjectCode: "L", TeacherID: "L1"}})
	board.Place("CSE-A", 2, 0, "CSE_OS", "T2")

	assert.Equal(t, []int{2, 0, 1, 0, 0}, board.dayLoad("CSE-A"))
	assert.Equal(t, 1, board.countTheory("CSE-A", "CSE_DS"))
}

func TestLabTeachersDeduplicates(t *testing.T) {
	entries := []LabEntry{{TeacherID: "L1"}, {TeacherID: ""}, {TeacherID: "L1"}, {TeacherID: "L2"}}

	assert.Equal(t, []string{"L1", "L2"}, labTeachers(entries))
}

func TestTheoryProjectPlacerDropsWhatDoesNotFit(t *testing.T) {
	settings := Settings{
		Days:           []string{"MON", "TUE"},
		TimeSlots:      []string{"s0", "s1"},
		BranchSections: []BranchSections{{Branch: "CSE", Letters: []string{"A"}}},
	}
	board := newBoard(newLayout(settings), settings.sections(), NewTeacherLedger())
	placer := NewTheoryProjectPlacer(board, rand.New(rand.NewSource(1)), nil)
	section := settings.sections()[0]

	dropped := placer.PlaceSection(section, []Subject{
		{Code: "CSE_DS", Kind: SubjectTheory, TeacherID: "T1", Credits: 3},
		{Code: "CSE_OS", Kind: SubjectTheory, TeacherID: "T2", Credits: 3},
	})

	assert.Equal(t, 2, dropped)
	assert.Equal(t, 4, board.countTheory("CSE-A", "CSE_DS")+board.countTheory("CSE-A", "CSE_OS"))
}

func TestTheoryProjectPlacerClampsCredits(t *testing.T) {
	board := newDefaultBoard()
	placer := NewTheoryProjectPlacer(board, rand.New(rand.NewSource(3)), nil)
	section := Section{Name: "CSE-A", Branch: "CSE", Letter: "A"}

	dropped := placer.PlaceSection(section, []Subject{
		{Code: "CSE_BIG", Kind: SubjectTheory, TeacherID: "T1", Credits: 12},
		{Code: "CSE_ZERO", Kind: SubjectProject, TeacherID: "T2"},
	})

	assert.Zero(t, dropped)
	assert.Equal(t, 6, board.countTheory("CSE-A", "CSE_BIG"))
	assert.Equal(t, 1, board.countTheory("CSE-A", "CSE_ZERO"))
}
