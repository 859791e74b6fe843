package service

import (
	"context"
	"time"

	"github.com/Likith-04/Tibl.ai/internal/models"
)

type dbMetrics interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// InstrumentedStore records query latency for every timetable store call.
type InstrumentedStore struct {
	store   TimetableStore
	metrics dbMetrics
}

// NewInstrumentedStore wraps store so each call is observed under a per-operation label.
func NewInstrumentedStore(store TimetableStore, metrics dbMetrics) *InstrumentedStore {
	return &InstrumentedStore{store: store, metrics: metrics}
}

func (s *InstrumentedStore) observe(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// Create persists a run with its allocations.
func (s *InstrumentedStore) Create(ctx context.Context, tt *models.Timetable) error {
	defer s.observe("timetable_create", time.Now())
	return s.store.Create(ctx, tt)
}

// Get loads a run by id.
func (s *InstrumentedStore) Get(ctx context.Context, id string) (*models.Timetable, error) {
	defer s.observe("timetable_get", time.Now())
	return s.store.Get(ctx, id)
}

// LatestID returns the id of the newest run.
func (s *InstrumentedStore) LatestID(ctx context.Context) (string, error) {
	defer s.observe("timetable_latest", time.Now())
	return s.store.LatestID(ctx)
}

// List returns run headers, newest first.
func (s *InstrumentedStore) List(ctx context.Context, limit int) ([]models.TimetableRun, error) {
	defer s.observe("timetable_list", time.Now())
	return s.store.List(ctx, limit)
}
