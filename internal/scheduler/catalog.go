package scheduler

import "strings"

// SubjectKind classifies how a subject is scheduled.
type SubjectKind string

const (
	SubjectTheory  SubjectKind = "Theory"
	SubjectProject SubjectKind = "Project"
	SubjectLab     SubjectKind = "Lab"
)

// ParseSubjectKind maps free-form catalog values onto a kind. Unknown values schedule as theory.
func ParseSubjectKind(raw string) SubjectKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "project":
		return SubjectProject
	case "lab", "laboratory":
		return SubjectLab
	default:
		return SubjectTheory
	}
}

// Subject is one catalog entry. Credits drive the weekly session count for theory and project subjects.
type Subject struct {
	Code      string      `json:"code"`
	Name      string      `json:"name,omitempty"`
	Branch    string      `json:"branch"`
	Kind      SubjectKind `json:"kind"`
	TeacherID string      `json:"teacherId,omitempty"`
	Credits   int         `json:"credits"`
}

// Teacher identifies a staff member by id.
type Teacher struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Catalog is the read-only input of a run.
type Catalog struct {
	Subjects []Subject `json:"subjects"`
	Teachers []Teacher `json:"teachers"`
}

// TeacherName resolves an id to a display name.
func (c Catalog) TeacherName(id string) string {
	for _, t := range c.Teachers {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}

func (c Catalog) subjectsFor(branch string, kinds ...SubjectKind) []Subject {
	var result []Subject
	for _, subject := range c.Subjects {
		if !strings.EqualFold(strings.TrimSpace(subject.Branch), branch) {
			continue
		}
		for _, kind := range kinds {
			if subject.Kind == kind {
				result = append(result, subject)
				break
			}
		}
	}
	return result
}

func sessionsFor(subject Subject) int {
	switch {
	case subject.Credits < 1:
		return 1
	case subject.Credits > 6:
		return 6
	default:
		return subject.Credits
	}
}
