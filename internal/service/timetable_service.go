package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Likith-04/Tibl.ai/internal/dto"
	"github.com/Likith-04/Tibl.ai/internal/models"
	"github.com/Likith-04/Tibl.ai/internal/scheduler"
	"github.com/Likith-04/Tibl.ai/pkg/config"
	appErrors "github.com/Likith-04/Tibl.ai/pkg/errors"
)

// CatalogLoader supplies the subjects and teachers of a run.
type CatalogLoader interface {
	Load(ctx context.Context) (scheduler.Catalog, error)
}

// TimetableStore persists finished runs.
type TimetableStore interface {
	Create(ctx context.Context, timetable *models.Timetable) error
	Get(ctx context.Context, id string) (*models.Timetable, error)
	LatestID(ctx context.Context) (string, error)
	List(ctx context.Context, limit int) ([]models.TimetableRun, error)
}

type artifactScheduler interface {
	Schedule(timetable *models.Timetable) error
}

type runMetrics interface {
	ObserveRun(duration time.Duration, stats *scheduler.Stats)
}

// TimetableServiceConfig governs run retention and link building.
type TimetableServiceConfig struct {
	Settings  scheduler.Settings
	RunTTL    time.Duration
	CacheTTL  time.Duration
	APIPrefix string
}

// TimetableService runs the scheduling engine and serves the resulting timetables.
type TimetableService struct {
	catalog   CatalogLoader
	store     TimetableStore
	cache     *CacheService
	artifacts artifactScheduler
	metrics   runMetrics
	renderer  *timetableRenderer
	validator *validator.Validate
	logger    *zap.Logger
	runs      *runStore
	cfg       TimetableServiceConfig

	// generating serialises runs; concurrent requests are refused instead of queued.
	generating sync.Mutex
	now        func() time.Time
	newID      func() string
}

// NewTimetableService wires the service. store, cache, artifacts and metrics may be nil.
func NewTimetableService(
	catalog CatalogLoader,
	store TimetableStore,
	cache *CacheService,
	artifacts artifactScheduler,
	metrics runMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &TimetableService{
		catalog:   catalog,
		store:     store,
		cache:     cache,
		artifacts: artifacts,
		metrics:   metrics,
		renderer:  newTimetableRenderer(),
		validator: validate,
		logger:    logger,
		runs:      newRunStore(cfg.RunTTL),
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Generate runs the engine over the current catalog and stores the result.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	if !s.generating.TryLock() {
		return nil, appErrors.ErrRunInProgress
	}
	defer s.generating.Unlock()

	settings, err := s.runSettings(req)
	if err != nil {
		return nil, err
	}

	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	engine, err := scheduler.NewEngine(settings, s.logger.Named("scheduler"))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := engine.Run(catalog)
	if s.metrics != nil {
		var stats *scheduler.Stats
		if result != nil {
			stats = &result.Stats
		}
		s.metrics.ObserveRun(time.Since(start), stats)
	}
	if err != nil {
		return nil, err
	}

	timetable := &models.Timetable{
		ID:          s.newID(),
		Seed:        settings.Seed,
		Settings:    settings,
		Sections:    result.Sections,
		Allocations: result.Allocations,
		Deficits:    result.Deficits,
		Stats:       result.Stats,
		Teachers:    runTeachers(catalog, result.Allocations),
		CreatedAt:   s.now().UTC(),
	}

	if s.store != nil {
		if err := s.store.Create(ctx, timetable); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable")
		}
	}
	s.remember(ctx, timetable)
	_ = s.cache.Set(ctx, latestCacheKey(), timetable.ID, s.cfg.CacheTTL)

	if s.artifacts != nil {
		if err := s.artifacts.Schedule(timetable); err != nil {
			s.logger.Warn("failed to schedule timetable artifacts", zap.String("run_id", timetable.ID), zap.Error(err))
		}
	}

	s.logger.Info("timetable generated",
		zap.String("run_id", timetable.ID),
		zap.Int64("seed", timetable.Seed),
		zap.Int("allocations", len(timetable.Allocations)),
		zap.Int("unmet_sessions", timetable.Stats.UnmetSessions),
		zap.Int("lab_anomalies", timetable.Stats.LabAnomalies),
	)

	return &dto.GenerateTimetableResponse{
		ID:        timetable.ID,
		Seed:      timetable.Seed,
		CreatedAt: timetable.CreatedAt,
		Sections:  timetable.Sections,
		Stats:     timetable.Stats,
		Deficits:  timetable.Deficits,
		Links:     s.links(timetable.ID),
	}, nil
}

// Get returns a run by id from memory, then cache, then the database.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	if tt, ok := s.runs.Get(id); ok {
		return tt, nil
	}

	var cached models.Timetable
	if hit, _ := s.cache.Get(ctx, timetableCacheKey(id), &cached); hit {
		s.runs.Save(&cached)
		return &cached, nil
	}

	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
	}
	tt, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	s.remember(ctx, tt)
	return tt, nil
}

// Latest returns the most recent run.
func (s *TimetableService) Latest(ctx context.Context) (*models.Timetable, error) {
	if tt, ok := s.runs.Latest(); ok {
		return tt, nil
	}

	var id string
	if hit, _ := s.cache.Get(ctx, latestCacheKey(), &id); hit && id != "" {
		return s.Get(ctx, id)
	}

	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable has been generated yet")
	}
	id, err := s.store.LatestID(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable has been generated yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest timetable")
	}
	return s.Get(ctx, id)
}

// List returns recent runs, newest first.
func (s *TimetableService) List(ctx context.Context, limit int) ([]dto.RunSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if s.store == nil {
		runs := s.runs.List()
		if len(runs) > limit {
			runs = runs[:limit]
		}
		summaries := make([]dto.RunSummary, len(runs))
		for i, tt := range runs {
			summaries[i] = dto.RunSummary{ID: tt.ID, Seed: tt.Seed, CreatedAt: tt.CreatedAt, Sections: tt.Sections, Stats: tt.Stats}
		}
		return summaries, nil
	}

	runs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	summaries := make([]dto.RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = dto.RunSummary{
			ID:        run.ID,
			Seed:      run.Seed,
			CreatedAt: run.CreatedAt,
			Sections:  []string(run.Sections),
			Stats:     scheduler.Stats(run.Stats),
		}
	}
	return summaries, nil
}

// Summary totals the periods each subject received in a run.
func (s *TimetableService) Summary(ctx context.Context, id string) (*dto.TimetableSummaryResponse, error) {
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subjects := summarize(tt.Allocations)
	if subjects == nil {
		subjects = []dto.SubjectPeriods{}
	}
	return &dto.TimetableSummaryResponse{RunID: tt.ID, Subjects: subjects, Stats: tt.Stats, Deficits: tt.Deficits}, nil
}

// TeacherSchedule returns one teacher's week in a run. Teachers the run never placed are not found.
func (s *TimetableService) TeacherSchedule(ctx context.Context, id, teacherID string) (*dto.TeacherScheduleResponse, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, sessions := teacherRows(tt, teacherID)
	if sessions == 0 {
		if _, known := tt.Teachers[teacherID]; !known {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s has no sessions in run %s", teacherID, tt.ID))
		}
	}
	return &dto.TeacherScheduleResponse{
		RunID:       tt.ID,
		TeacherID:   teacherID,
		TeacherName: tt.TeacherName(teacherID),
		Sessions:    sessions,
		Rows:        rows,
	}, nil
}

// Export renders a run in the requested format and returns the bytes, content type and file name.
func (s *TimetableService) Export(ctx context.Context, id, format string) ([]byte, string, string, error) {
	f, ok := models.ParseExportFormat(format)
	if !ok {
		return nil, "", "", appErrors.Clone(appErrors.ErrUnsupportedType, fmt.Sprintf("unsupported export format %q", format))
	}
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	data, contentType, err := s.renderer.Render(tt, f)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return data, contentType, fmt.Sprintf("timetable_%s.%s", shortID(tt.ID), f), nil
}

// Settings returns the configured engine settings.
func (s *TimetableService) Settings() scheduler.Settings {
	return s.cfg.Settings
}

func (s *TimetableService) remember(ctx context.Context, tt *models.Timetable) {
	s.runs.Save(tt)
	_ = s.cache.Set(ctx, timetableCacheKey(tt.ID), tt, s.cfg.CacheTTL)
}

// runSettings applies request overrides to a copy of the configured settings.
func (s *TimetableService) runSettings(req dto.GenerateTimetableRequest) (scheduler.Settings, error) {
	settings := s.cfg.Settings
	if req.Seed != nil {
		settings.Seed = *req.Seed
	}
	if len(req.PreferredLabDays) > 0 {
		known := make(map[string]bool, len(settings.Days))
		for _, day := range settings.Days {
			known[day] = true
		}
		days := make([]string, 0, len(req.PreferredLabDays))
		for _, day := range req.PreferredLabDays {
			day = strings.ToUpper(strings.TrimSpace(day))
			if !known[day] {
				return settings, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown lab day %q", day))
			}
			days = append(days, day)
		}
		settings.PreferredLabDays = days
	}
	if len(req.Branches) > 0 {
		wanted := make(map[string]bool, len(req.Branches))
		for _, branch := range req.Branches {
			wanted[strings.ToUpper(strings.TrimSpace(branch))] = true
		}
		filtered := make([]scheduler.BranchSections, 0, len(wanted))
		for _, bs := range settings.BranchSections {
			if wanted[bs.Branch] {
				filtered = append(filtered, bs)
				delete(wanted, bs.Branch)
			}
		}
		if len(wanted) > 0 {
			return settings, appErrors.Clone(appErrors.ErrValidation, "request names a branch that is not configured")
		}
		settings.BranchSections = filtered
	}
	return settings, nil
}

func (s *TimetableService) links(id string) dto.TimetableLinks {
	base := strings.TrimRight(s.cfg.APIPrefix, "/") + "/timetables/" + id
	return dto.TimetableLinks{
		Self:      base,
		Summary:   base + "/summary",
		Export:    base + "/export",
		Artifacts: base + "/artifacts",
	}
}

// SettingsFromConfig maps the environment configuration onto engine settings.
func SettingsFromConfig(cfg config.SchedulerConfig) scheduler.Settings {
	settings := scheduler.Settings{
		Days:             upperAll(cfg.Days),
		TimeSlots:        append([]string(nil), cfg.TimeSlots...),
		BlockedSlots:     append([]int(nil), cfg.BlockedSlots...),
		LabStarts:        append([]int(nil), cfg.LabStarts...),
		LabRoomPools:     make(map[string][]string, len(cfg.LabRooms)),
		PreferredLabDays: upperAll(cfg.PreferredLabDays),
		Seed:             cfg.Seed,
	}
	for _, bs := range cfg.BranchSections {
		settings.BranchSections = append(settings.BranchSections, scheduler.BranchSections{
			Branch:  bs.Branch,
			Letters: append([]string(nil), bs.Letters...),
		})
	}
	for branch, rooms := range cfg.LabRooms {
		settings.LabRoomPools[branch] = append([]string(nil), rooms...)
	}
	return settings
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}
