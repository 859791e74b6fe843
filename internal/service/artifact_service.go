package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Likith-04/Tibl.ai/internal/dto"
	"github.com/Likith-04/Tibl.ai/internal/models"
	appErrors "github.com/Likith-04/Tibl.ai/pkg/errors"
	"github.com/Likith-04/Tibl.ai/pkg/jobs"
	"github.com/Likith-04/Tibl.ai/pkg/storage"
)

// LatestArtifact is the file that always mirrors the newest run.
const LatestArtifact = "latest.json"

const artifactJobType = "timetable.artifacts"

type artifactStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	List(prefix string) ([]storage.FileInfo, error)
	CleanupOlderThan(ttl time.Duration, keep ...string) ([]string, error)
}

type artifactMetrics interface {
	RecordArtifactJob(success bool)
}

// ArtifactConfig tunes background rendering.
type ArtifactConfig struct {
	APIPrefix  string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Retention  time.Duration
}

// ArtifactService renders every export of a run to disk and hands out signed download links.
type ArtifactService struct {
	storage  artifactStorage
	signer   *storage.SignedURLSigner
	renderer *timetableRenderer
	metrics  artifactMetrics
	queue    *jobs.Queue
	logger   *zap.Logger
	cfg      ArtifactConfig
}

// NewArtifactService builds the service and its worker queue. Call Start before Schedule.
func NewArtifactService(store artifactStorage, signer *storage.SignedURLSigner, metrics artifactMetrics, logger *zap.Logger, cfg ArtifactConfig) *ArtifactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	s := &ArtifactService{
		storage:  store,
		signer:   signer,
		renderer: newTimetableRenderer(),
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
	s.queue = jobs.NewQueue("artifacts", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *ArtifactService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the workers. Renders still queued are dropped.
func (s *ArtifactService) Stop() {
	s.queue.Stop()
}

// Wait blocks until scheduled renders are done or ctx ends.
func (s *ArtifactService) Wait(ctx context.Context) error {
	return s.queue.Wait(ctx)
}

// Schedule queues the run for rendering.
func (s *ArtifactService) Schedule(tt *models.Timetable) error {
	if tt == nil || tt.ID == "" {
		return fmt.Errorf("timetable required")
	}
	return s.queue.Enqueue(jobs.Job{ID: tt.ID, Type: artifactJobType, Payload: tt})
}

func (s *ArtifactService) handle(_ context.Context, job jobs.Job) error {
	tt, ok := job.Payload.(*models.Timetable)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	_, err := s.Write(tt)
	if s.metrics != nil {
		s.metrics.RecordArtifactJob(err == nil)
	}
	return err
}

// Write renders the run synchronously and returns the stored file names.
func (s *ArtifactService) Write(tt *models.Timetable) ([]string, error) {
	overall, _, err := s.renderer.Render(tt, models.ExportFormatCSV)
	if err != nil {
		return nil, fmt.Errorf("render overall schedule: %w", err)
	}
	summary, err := s.renderer.Summary(tt)
	if err != nil {
		return nil, fmt.Errorf("render allocation summary: %w", err)
	}
	workbook, _, err := s.renderer.Render(tt, models.ExportFormatXLSX)
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	records, _, err := s.renderer.Render(tt, models.ExportFormatJSON)
	if err != nil {
		return nil, fmt.Errorf("render section records: %w", err)
	}
	latest, err := json.Marshal(tt)
	if err != nil {
		return nil, fmt.Errorf("encode latest run: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{tt.ID + "_overall_schedule.csv", overall},
		{tt.ID + "_allocation_summary.csv", summary},
		{tt.ID + "_timetables.xlsx", workbook},
		{tt.ID + "_timetable.json", records},
		{LatestArtifact, latest},
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		name, err := s.storage.Save(f.name, f.data)
		if err != nil {
			return names, fmt.Errorf("save %s: %w", f.name, err)
		}
		names = append(names, name)
	}
	s.logger.Info("timetable artifacts written", zap.String("run_id", tt.ID), zap.Strings("files", names))
	return names, nil
}

// Status reports the render state of a run and signs a link for every finished file.
func (s *ArtifactService) Status(runID string) (*dto.ArtifactsResponse, error) {
	files, err := s.storage.List(runID + "_")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list artifacts")
	}

	resp := &dto.ArtifactsResponse{RunID: runID, Files: []dto.ArtifactLink{}}
	if status, ok := s.queue.Status(runID); ok {
		resp.State = string(status.State)
		resp.Error = status.Error
	} else if len(files) > 0 {
		resp.State = string(jobs.StateSucceeded)
	} else {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no artifacts for this run")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	for _, f := range files {
		token, expiresAt, err := s.signer.Generate(runID, f.Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign artifact link")
		}
		resp.Files = append(resp.Files, dto.ArtifactLink{
			Name:      f.Name,
			Format:    strings.TrimPrefix(filepath.Ext(f.Name), "."),
			URL:       fmt.Sprintf("%s/timetables/files/%s?token=%s", prefix, f.Name, token),
			ExpiresAt: expiresAt,
		})
	}
	return resp, nil
}

// Open checks the download token and opens the file. The caller closes it.
func (s *ArtifactService) Open(name, token string) (*os.File, string, error) {
	if _, err := s.signer.Verify(token, name); err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	f, err := s.storage.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "artifact not found")
		}
		if errors.Is(err, storage.ErrInvalidPath) {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "invalid artifact name")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open artifact")
	}
	return f, artifactContentType(name), nil
}

// Prune deletes artifacts older than the retention window. latest.json is always kept.
func (s *ArtifactService) Prune() ([]string, error) {
	removed, err := s.storage.CleanupOlderThan(s.cfg.Retention, LatestArtifact)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("pruned timetable artifacts", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func artifactContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
