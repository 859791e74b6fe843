package service

import (
	"sort"
	"sync"
	"time"

	"github.com/Likith-04/Tibl.ai/internal/models"
)

// runStore keeps recent runs in memory so reads right after a generate never hit Redis or Postgres.
type runStore struct {
	ttl    time.Duration
	now    func() time.Time
	mu     sync.RWMutex
	items  map[string]storedRun
	latest string
}

type storedRun struct {
	timetable *models.Timetable
	storedAt  time.Time
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{ttl: ttl, now: time.Now, items: make(map[string]storedRun)}
}

func (s *runStore) Save(tt *models.Timetable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[tt.ID] = storedRun{timetable: tt, storedAt: s.now()}
	if latest, ok := s.items[s.latest]; !ok || !tt.CreatedAt.Before(latest.timetable.CreatedAt) {
		s.latest = tt.ID
	}
}

func (s *runStore) Get(id string) (*models.Timetable, bool) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().Sub(item.storedAt) > s.ttl {
		s.Delete(id)
		return nil, false
	}
	return item.timetable, true
}

func (s *runStore) Latest() (*models.Timetable, bool) {
	s.mu.RLock()
	id := s.latest
	s.mu.RUnlock()
	if id == "" {
		return nil, false
	}
	return s.Get(id)
}

// List returns live runs newest first.
func (s *runStore) List() []*models.Timetable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	runs := make([]*models.Timetable, 0, len(s.items))
	for _, item := range s.items {
		if now.Sub(item.storedAt) <= s.ttl {
			runs = append(runs, item.timetable)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	if s.latest == id {
		s.latest = ""
	}
	s.mu.Unlock()
}
