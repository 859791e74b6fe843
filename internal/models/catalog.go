package models

import (
	"database/sql"
	"strings"

	"github.com/Likith-04/Tibl.ai/internal/scheduler"
)

// SubjectRow is one row of the subjects table.
type SubjectRow struct {
	Code      string         `db:"code"`
	Name      string         `db:"name"`
	Branch    string         `db:"branch"`
	Kind      string         `db:"kind"`
	TeacherID sql.NullString `db:"teacher_id"`
	Credits   int            `db:"credits"`
	Position  int            `db:"position"`
}

// Subject converts the row to the engine type.
func (r SubjectRow) Subject() scheduler.Subject {
	subject := scheduler.Subject{
		Code:    r.Code,
		Name:    r.Name,
		Branch:  r.Branch,
		Kind:    scheduler.ParseSubjectKind(r.Kind),
		Credits: r.Credits,
	}
	if r.TeacherID.Valid {
		subject.TeacherID = r.TeacherID.String
	}
	return subject
}

// TeacherRow is one row of the teachers table.
type TeacherRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// Teacher converts the row to the engine type.
func (r TeacherRow) Teacher() scheduler.Teacher {
	return scheduler.Teacher{ID: r.ID, Name: r.Name}
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
