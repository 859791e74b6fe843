package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Likith-04/Tibl.ai/internal/models"
	"github.com/Likith-04/Tibl.ai/internal/scheduler"
)

var runColumns = []string{"id", "seed", "settings", "sections", "stats", "deficits", "created_at"}

var runDetailColumns = []string{"id", "seed", "settings", "sections", "stats", "deficits", "teachers", "created_at"}

var allocationColumns = []string{"run_id", "position", "day", "section", "branch", "batch", "slot_index", "time_label", "activity", "subject_code", "teacher_id", "room", "anomaly"}

func sampleTimetable() *models.Timetable {
	return &models.Timetable{
		ID:       "run-1",
		Seed:     42,
		Settings: scheduler.DefaultSettings(),
		Sections: []string{"CSE-A"},
		Allocations: []scheduler.Allocation{
			{Day: "MON", Section: "CSE-A", Branch: "CSE", Batch: "A1 & A2", SlotIndex: 0, Time: "09:00-10:00", Activity: scheduler.ActivityTheory, SubjectCode: "CSE_DBMS", TeacherID: "T1", Room: "A-Classroom"},
			{Day: "TUE", Section: "CSE-A", Branch: "CSE", Batch: "A1", SlotIndex: 0, Time: "09:00-10:00", Activity: scheduler.ActivityLab, SubjectCode: "CSE_OS_LAB", TeacherID: "T2", Room: "CSE_Lab1"},
		},
		Stats:     scheduler.Stats{Sections: 1},
		Teachers:  models.TeacherNames{"T1": "Asha Rao"},
		CreatedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestTimetableRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	tt := sampleTimetable()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_runs")).
		WithArgs("run-1", int64(42), sqlmock.AnyArg(), []byte(`["CSE-A"]`), sqlmock.AnyArg(), []byte(`[]`), []byte(`{"T1":"Asha Rao"}`), tt.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_allocations")).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), tt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateRollsBackOnAllocationFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO timetable_runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_allocations").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleTimetable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert timetable allocations")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, seed, settings, sections, stats, deficits, teachers, created_at FROM timetable_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(runDetailColumns).
			AddRow("run-1", 7, `{"days":["MON"]}`, `["CSE-A"]`, `{"labAnomalies":1}`, `[{"section":"CSE-A","subjectCode":"X","required":4,"placed":3}]`, `{"T1":"Asha Rao"}`, created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_allocations WHERE run_id = $1 ORDER BY position")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(allocationColumns).
			AddRow("run-1", 0, "MON", "CSE-A", "CSE", "A1", 3, "11:20-12:20", "Unassigned", "CSE_OS_LAB", "", "", true))

	tt, err := repo.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), tt.Seed)
	assert.Equal(t, []string{"MON"}, tt.Settings.Days)
	assert.Equal(t, []string{"CSE-A"}, tt.Sections)
	assert.Equal(t, 1, tt.Stats.LabAnomalies)
	require.Len(t, tt.Deficits, 1)
	assert.Equal(t, 3, tt.Deficits[0].Placed)
	require.Len(t, tt.Allocations, 1)
	assert.True(t, tt.Allocations[0].Anomaly)
	assert.Equal(t, "11:20-12:20", tt.Allocations[0].Time)
	assert.Equal(t, "Asha Rao", tt.TeacherName("T1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery("FROM timetable_runs WHERE id").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTimetableRepositoryLatestIDAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM timetable_runs ORDER BY created_at DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("run-9"))
	id, err := repo.LatestID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-9", id)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_runs ORDER BY created_at DESC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow("run-9", 1, `{}`, `[]`, `{}`, `[]`, time.Now()).
			AddRow("run-8", 2, `{}`, `[]`, `{}`, `[]`, time.Now()))
	runs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
