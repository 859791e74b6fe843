package scheduler

import (
	"fmt"
	"strings"

	appErrors "github.com/Likith-04/Tibl.ai/pkg/errors"
)

// BranchSections lists the section letters configured for one branch.
type BranchSections struct {
	Branch  string   `json:"branch"`
	Letters []string `json:"letters"`
}

// Settings describes the weekly grid and the heuristic knobs for a run.
// None of the values affect the conflict invariants, only the ordering the engine explores.
type Settings struct {
	Days             []string            `json:"days"`
	TimeSlots        []string            `json:"timeSlots"`
	BlockedSlots     []int               `json:"blockedSlots"`
	LabStarts        []int               `json:"labStarts"`
	BranchSections   []BranchSections    `json:"branchSections"`
	LabRoomPools     map[string][]string `json:"labRoomPools"`
	PreferredLabDays []string            `json:"preferredLabDays"`
	Seed             int64               `json:"seed"`
}

// DefaultSettings mirrors the timetable the college runs today.
func DefaultSettings() Settings {
	return Settings{
		Days: []string{"MON", "TUE", "WED", "THU", "FRI"},
		TimeSlots: []string{
			"09:00-10:00", "10:00-11:00", "11:00-11:20",
			"11:20-12:20", "12:20-13:20", "13:20-14:00 (Lunch)",
			"14:00-15:00", "15:00-16:00", "16:00-17:00",
		},
		BlockedSlots: []int{2, 5},
		LabStarts:    []int{0, 3, 6, 7},
		BranchSections: []BranchSections{
			{Branch: "CSE", Letters: []string{"A", "B", "C"}},
			{Branch: "ISE", Letters: []string{"D", "E"}},
			{Branch: "ECE", Letters: []string{"F"}},
		},
		LabRoomPools: map[string][]string{
			"CSE": {"CSE_Lab1", "CSE_Lab2"},
			"ISE": {"ISE_Lab1", "ISE_Lab2"},
			"ECE": {"ECE_Lab1", "ECE_Lab2"},
		},
		PreferredLabDays: []string{"TUE", "THU"},
		Seed:             42,
	}
}

// Validate rejects settings the engine cannot build a grid from.
func (s Settings) Validate() error {
	if len(s.Days) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one day is required")
	}
	if len(s.TimeSlots) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one time slot is required")
	}
	seenDays := make(map[string]bool, len(s.Days))
	for _, day := range s.Days {
		key := strings.ToUpper(strings.TrimSpace(day))
		if key == "" || seenDays[key] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid or duplicate day %q", day))
		}
		seenDays[key] = true
	}
	for _, idx := range s.BlockedSlots {
		if idx < 0 || idx >= len(s.TimeSlots) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocked slot %d out of range", idx))
		}
	}
	for _, idx := range s.LabStarts {
		if idx < 0 || idx >= len(s.TimeSlots) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lab start %d out of range", idx))
		}
	}
	if len(s.BranchSections) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one branch section is required")
	}
	seenSections := make(map[string]bool)
	for _, bs := range s.BranchSections {
		if strings.TrimSpace(bs.Branch) == "" || len(bs.Letters) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "branch sections need a branch and at least one letter")
		}
		for _, letter := range bs.Letters {
			name := sectionName(bs.Branch, letter)
			if strings.TrimSpace(letter) == "" || seenSections[name] {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid or duplicate section %q", name))
			}
			seenSections[name] = true
		}
	}
	return nil
}

// Section is a branch+letter class group owning one grid.
type Section struct {
	Name   string
	Branch string
	Letter string
}

// Batches returns the two lab halves of the section.
func (s Section) Batches() (string, string) {
	return s.Letter + "1", s.Letter + "2"
}

func sectionName(branch, letter string) string {
	return strings.ToUpper(strings.TrimSpace(branch)) + "-" + strings.ToUpper(strings.TrimSpace(letter))
}

func (s Settings) sections() []Section {
	var result []Section
	for _, bs := range s.BranchSections {
		branch := strings.ToUpper(strings.TrimSpace(bs.Branch))
		for _, letter := range bs.Letters {
			letter = strings.ToUpper(strings.TrimSpace(letter))
			result = append(result, Section{Name: sectionName(branch, letter), Branch: branch, Letter: letter})
		}
	}
	return result
}

// layout is the immutable shape of every section grid in a run.
type layout struct {
	days      []string
	slots     []string
	blocked   map[int]bool
	labStarts []int
	dayIndex  map[string]int
}

func newLayout(s Settings) *layout {
	l := &layout{
		days:     make([]string, len(s.Days)),
		slots:    append([]string(nil), s.TimeSlots...),
		blocked:  make(map[int]bool, len(s.BlockedSlots)),
		dayIndex: make(map[string]int, len(s.Days)),
	}
	for i, day := range s.Days {
		l.days[i] = strings.ToUpper(strings.TrimSpace(day))
		l.dayIndex[l.days[i]] = i
	}
	for _, idx := range s.BlockedSlots {
		l.blocked[idx] = true
	}
	seen := make(map[int]bool)
	for _, start := range s.LabStarts {
		if seen[start] || !l.validLabStart(start) {
			continue
		}
		seen[start] = true
		l.labStarts = append(l.labStarts, start)
	}
	return l
}

func (l *layout) validLabStart(start int) bool {
	if start < 0 || start+1 >= len(l.slots) {
		return false
	}
	return !l.blocked[start] && !l.blocked[start+1]
}

func (l *layout) inRange(day, slot int) bool {
	return day >= 0 && day < len(l.days) && slot >= 0 && slot < len(l.slots)
}
