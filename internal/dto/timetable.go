package dto

import (
	"time"

	"github.com/Likith-04/Tibl.ai/internal/scheduler"
)

// GenerateTimetableRequest overrides per-run engine knobs. Omitted fields fall back to configuration.
type GenerateTimetableRequest struct {
	Seed             *int64   `json:"seed"`
	PreferredLabDays []string `json:"preferredLabDays" validate:"omitempty,max=7,dive,required,alpha,min=2,max=9"`
	Branches         []string `json:"branches" validate:"omitempty,dive,required,alphanum,max=16"`
}

// GenerateTimetableResponse describes a finished run.
type GenerateTimetableResponse struct {
	ID        string              `json:"id"`
	Seed      int64               `json:"seed"`
	CreatedAt time.Time           `json:"createdAt"`
	Sections  []string            `json:"sections"`
	Stats     scheduler.Stats     `json:"stats"`
	Deficits  []scheduler.Deficit `json:"deficits"`
	Links     TimetableLinks      `json:"links"`
}

// TimetableLinks are relative API paths for a run.
type TimetableLinks struct {
	Self      string `json:"self"`
	Summary   string `json:"summary"`
	Export    string `json:"export"`
	Artifacts string `json:"artifacts"`
}

// SubjectPeriods is one row of the allocation summary.
type SubjectPeriods struct {
	Subject      string `json:"subject"`
	TotalPeriods int    `json:"totalPeriods"`
}

// TimetableSummaryResponse lists total periods per subject for a run.
type TimetableSummaryResponse struct {
	RunID    string              `json:"runId"`
	Subjects []SubjectPeriods    `json:"subjects"`
	Stats    scheduler.Stats     `json:"stats"`
	Deficits []scheduler.Deficit `json:"deficits"`
}

// ArtifactLink is a signed download for a generated file.
type ArtifactLink struct {
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ArtifactsResponse reports background rendering for a run.
type ArtifactsResponse struct {
	RunID string         `json:"runId"`
	State string         `json:"state"`
	Error string         `json:"error,omitempty"`
	Files []ArtifactLink `json:"files"`
}

// RunSummary is one entry of the run history.
type RunSummary struct {
	ID        string          `json:"id"`
	Seed      int64           `json:"seed"`
	CreatedAt time.Time       `json:"createdAt"`
	Sections  []string        `json:"sections"`
	Stats     scheduler.Stats `json:"stats"`
}

// TeacherScheduleResponse is one teacher's week in a run. Rows hold a "Day" column plus one column per
// time slot.
type TeacherScheduleResponse struct {
	RunID       string              `json:"runId"`
	TeacherID   string              `json:"teacherId"`
	TeacherName string              `json:"teacherName,omitempty"`
	Sessions    int                 `json:"sessions"`
	Rows        []map[string]string `json:"rows"`
}
