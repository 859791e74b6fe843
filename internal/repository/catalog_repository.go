package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Likith-04/Tibl.ai/internal/models"
	"github.com/Likith-04/Tibl.ai/internal/scheduler"
)

// CatalogRepository reads and replaces the subject catalog stored in Postgres.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Load returns subjects in catalog order together with all teachers.
func (r *CatalogRepository) Load(ctx context.Context) (scheduler.Catalog, error) {
	const subjectsQuery = `SELECT code, name, branch, kind, teacher_id, credits, position
FROM subjects ORDER BY position, code`
	var subjectRows []models.SubjectRow
	if err := r.db.SelectContext(ctx, &subjectRows, subjectsQuery); err != nil {
		return scheduler.Catalog{}, fmt.Errorf("list subjects: %w", err)
	}

	const teachersQuery = `SELECT id, name FROM teachers ORDER BY id`
	var teacherRows []models.TeacherRow
	if err := r.db.SelectContext(ctx, &teacherRows, teachersQuery); err != nil {
		return scheduler.Catalog{}, fmt.Errorf("list teachers: %w", err)
	}

	catalog := scheduler.Catalog{
		Subjects: make([]scheduler.Subject, len(subjectRows)),
		Teachers: make([]scheduler.Teacher, len(teacherRows)),
	}
	for i, row := range subjectRows {
		catalog.Subjects[i] = row.Subject()
	}
	for i, row := range teacherRows {
		catalog.Teachers[i] = row.Teacher()
	}
	return catalog, nil
}

// Replace swaps the stored catalog for the given one in a single transaction.
func (r *CatalogRepository) Replace(ctx context.Context, catalog scheduler.Catalog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM subjects`); err != nil {
		return fmt.Errorf("clear subjects: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM teachers`); err != nil {
		return fmt.Errorf("clear teachers: %w", err)
	}

	const insertTeacher = `INSERT INTO teachers (id, name) VALUES (:id, :name)`
	for _, teacher := range catalog.Teachers {
		row := models.TeacherRow{ID: teacher.ID, Name: teacher.Name}
		if _, err = tx.NamedExecContext(ctx, insertTeacher, row); err != nil {
			return fmt.Errorf("insert teacher %s: %w", teacher.ID, err)
		}
	}

	const insertSubject = `INSERT INTO subjects (code, name, branch, kind, teacher_id, credits, position)
VALUES (:code, :name, :branch, :kind, :teacher_id, :credits, :position)`
	for i, subject := range catalog.Subjects {
		row := models.SubjectRow{
			Code:      subject.Code,
			Name:      subject.Name,
			Branch:    subject.Branch,
			Kind:      string(subject.Kind),
			TeacherID: sql.NullString{String: subject.TeacherID, Valid: subject.TeacherID != ""},
			Credits:   subject.Credits,
			Position:  i,
		}
		if _, err = tx.NamedExecContext(ctx, insertSubject, row); err != nil {
			return fmt.Errorf("insert subject %s: %w", subject.Code, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}
