package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Likith-04/Tibl.ai/internal/models"
	"github.com/Likith-04/Tibl.ai/internal/scheduler"
)

// allocationBatchSize keeps multi-row inserts well under Postgres' bind parameter limit.
const allocationBatchSize = 500

// TimetableRepository persists generated runs and their allocations.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create stores the run header and every allocation atomically.
func (r *TimetableRepository) Create(ctx context.Context, timetable *models.Timetable) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRun = `INSERT INTO timetable_runs (id, seed, settings, sections, stats, deficits, teachers, created_at)
VALUES (:id, :seed, :settings, :sections, :stats, :deficits, :teachers, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertRun, timetable.Run()); err != nil {
		return fmt.Errorf("insert timetable run: %w", err)
	}

	const insertAllocations = `INSERT INTO timetable_allocations (run_id, position, day, section, branch, batch, slot_index, time_label, activity, subject_code, teacher_id, room, anomaly)
VALUES (:run_id, :position, :day, :section, :branch, :batch, :slot_index, :time_label, :activity, :subject_code, :teacher_id, :room, :anomaly)`
	rows := models.NewAllocationRows(timetable.ID, timetable.Allocations)
	for start := 0; start < len(rows); start += allocationBatchSize {
		end := start + allocationBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err = tx.NamedExecContext(ctx, insertAllocations, rows[start:end]); err != nil {
			return fmt.Errorf("insert timetable allocations: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable tx: %w", err)
	}
	return nil
}

// Get loads a run with its allocations in export order. A missing run wraps sql.ErrNoRows.
func (r *TimetableRepository) Get(ctx context.Context, id string) (*models.Timetable, error) {
	const runQuery = `SELECT id, seed, settings, sections, stats, deficits, teachers, created_at
FROM timetable_runs WHERE id = $1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, runQuery, id); err != nil {
		return nil, fmt.Errorf("get timetable run: %w", err)
	}

	const allocationsQuery = `SELECT run_id, position, day, section, branch, batch, slot_index, time_label, activity, subject_code, teacher_id, room, anomaly
FROM timetable_allocations WHERE run_id = $1 ORDER BY position`
	var rows []models.AllocationRow
	if err := r.db.SelectContext(ctx, &rows, allocationsQuery, id); err != nil {
		return nil, fmt.Errorf("list timetable allocations: %w", err)
	}

	allocations := make([]scheduler.Allocation, len(rows))
	for i, row := range rows {
		allocations[i] = row.Allocation()
	}
	return run.Timetable(allocations), nil
}

// LatestID returns the id of the most recent run. No runs wraps sql.ErrNoRows.
func (r *TimetableRepository) LatestID(ctx context.Context) (string, error) {
	const query = `SELECT id FROM timetable_runs ORDER BY created_at DESC LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query); err != nil {
		return "", fmt.Errorf("get latest timetable run: %w", err)
	}
	return id, nil
}

// List returns run headers newest first.
func (r *TimetableRepository) List(ctx context.Context, limit int) ([]models.TimetableRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, seed, settings, sections, stats, deficits, created_at
FROM timetable_runs ORDER BY created_at DESC LIMIT $1`
	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, nil
}
