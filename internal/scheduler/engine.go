package scheduler

import (
	"math/rand"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/Likith-04/Tibl.ai/pkg/errors"
)

// Deficit reports a theory or project subject that did not get all of its sessions.
type Deficit struct {
	Section     string `json:"section"`
	SubjectCode string `json:"subjectCode"`
	Required    int    `json:"required"`
	Placed      int    `json:"placed"`
}

// Stats summarises a run.
type Stats struct {
	Sections           int `json:"sections"`
	SessionsRequired   int `json:"sessionsRequired"`
	SessionsPlaced     int `json:"sessionsPlaced"`
	UnmetSessions      int `json:"unmetSessions"`
	LabSessions        int `json:"labSessions"`
	LabDirect          int `json:"labDirect"`
	LabRelocated       int `json:"labRelocated"`
	LabForced          int `json:"labForced"`
	LabAnomalies       int `json:"labAnomalies"`
	DroppedLabSessions int `json:"droppedLabSessions"`
	Relocations        int `json:"relocations"`
	EvictedSessions    int `json:"evictedSessions"`
	RoomClashes        int `json:"roomClashes"`
}

func (s *Stats) recordTier(tier Tier) {
	s.LabSessions++
	switch tier {
	case TierDirect:
		s.LabDirect++
	case TierRelocation:
		s.LabRelocated++
	case TierForced:
		s.LabForced++
	}
}

// Result is everything a run produced.
type Result struct {
	Sections    []string     `json:"sections"`
	Allocations []Allocation `json:"allocations"`
	Deficits    []Deficit    `json:"deficits"`
	RoomClashes []RoomClash  `json:"roomClashes,omitempty"`
	Stats       Stats        `json:"stats"`
}

// Engine runs the section-by-section scheduling pass.
type Engine struct {
	settings Settings
	logger   *zap.Logger
}

// NewEngine validates the settings and returns an engine.
func NewEngine(settings Settings, logger *zap.Logger) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{settings: settings, logger: logger}, nil
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Run schedules the catalog from scratch. Every call owns its own grids, ledger and random source,
// so identical catalogs and seeds yield identical results.
func (e *Engine) Run(catalog Catalog) (*Result, error) {
	_, result, err := e.run(catalog)
	return result, err
}

func (e *Engine) run(catalog Catalog) (*Board, *Result, error) {
	if len(catalog.Subjects) == 0 {
		return nil, nil, appErrors.ErrEmptyCatalog
	}
	catalog = normalizeCatalog(catalog)

	sections := e.settings.sections()
	board := newBoard(newLayout(e.settings), sections, NewTeacherLedger())
	rng := rand.New(rand.NewSource(e.settings.Seed))
	stats := &Stats{Sections: len(sections)}

	placer := NewTheoryProjectPlacer(board, rng, e.logger)
	labs := NewLabPairScheduler(board, NewBatchLabDays(), e.settings, stats, e.logger)

	for _, section := range sections {
		theory := catalog.subjectsFor(section.Branch, SubjectTheory, SubjectProject)
		dropped := placer.PlaceSection(section, theory)
		labs.ScheduleSection(section, catalog.subjectsFor(section.Branch, SubjectLab))
		e.logger.Debug("section scheduled",
			zap.String("section", section.Name),
			zap.Int("theory_subjects", len(theory)),
			zap.Int("dropped", dropped),
		)
	}

	result := &Result{Allocations: Export(board)}
	for _, section := range sections {
		result.Sections = append(result.Sections, section.Name)
		for _, subject := range catalog.subjectsFor(section.Branch, SubjectTheory, SubjectProject) {
			required := sessionsFor(subject)
			placed := board.countTheory(section.Name, subject.Code)
			stats.SessionsRequired += required
			stats.SessionsPlaced += placed
			if placed < required {
				result.Deficits = append(result.Deficits, Deficit{
					Section:     section.Name,
					SubjectCode: subject.Code,
					Required:    required,
					Placed:      placed,
				})
				stats.UnmetSessions += required - placed
			}
		}
	}
	result.RoomClashes = board.roomClashes()
	stats.RoomClashes = len(result.RoomClashes)
	for _, clash := range result.RoomClashes {
		e.logger.Warn("lab room shared across sections",
			zap.String("room", clash.Room),
			zap.String("day", clash.Day),
			zap.String("time", clash.Time),
			zap.Strings("sections", clash.Sections),
		)
	}
	result.Stats = *stats

	e.logger.Info("timetable run complete",
		zap.Int("sections", stats.Sections),
		zap.Int("allocations", len(result.Allocations)),
		zap.Int("unmet_sessions", stats.UnmetSessions),
		zap.Int("lab_anomalies", stats.LabAnomalies),
		zap.Int("dropped_lab_sessions", stats.DroppedLabSessions),
	)
	return board, result, nil
}

// normalizeCatalog upper-cases branch names so they match configured sections.
func normalizeCatalog(catalog Catalog) Catalog {
	subjects := make([]Subject, len(catalog.Subjects))
	for i, subject := range catalog.Subjects {
		subject.Branch = strings.ToUpper(strings.TrimSpace(subject.Branch))
		subject.TeacherID = strings.TrimSpace(subject.TeacherID)
		subjects[i] = subject
	}
	return Catalog{Subjects: subjects, Teachers: catalog.Teachers}
}
