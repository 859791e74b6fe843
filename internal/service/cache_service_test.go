package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Likith-04/Tibl.ai/internal/models"
	appErrors "github.com/Likith-04/Tibl.ai/pkg/errors"
)

type memoryCacheRepo struct {
	items  map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.items[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	r.items = map[string][]byte{}
	return nil
}

type cacheMetricsStub struct {
	hits, misses, writes int
}

func (m *cacheMetricsStub) RecordCacheOperation(hit bool, _ time.Duration) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func (m *cacheMetricsStub) ObserveCacheWrite(time.Duration) { m.writes++ }

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := &cacheMetricsStub{}
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var miss models.Timetable
	hit, err := svc.Get(ctx, timetableCacheKey("run-1"), &miss)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, timetableCacheKey("run-1"), &models.Timetable{ID: "run-1", Seed: 5}, 0))
	assert.Equal(t, time.Minute, repo.ttls["tibl:timetable:run-1"])

	var got models.Timetable
	hit, err = svc.Get(ctx, timetableCacheKey("run-1"), &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(5), got.Seed)
	assert.Equal(t, cacheMetricsStub{hits: 1, misses: 1, writes: 1}, *metrics)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)

	require.NoError(t, svc.Set(context.Background(), latestCacheKey(), "run-1", 0))
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), latestCacheKey(), new(string))
	assert.False(t, hit)
	assert.NoError(t, err)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	hit, err := svc.Get(context.Background(), latestCacheKey(), new(string))
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestTimetableServiceReadsThroughCache(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	require.NoError(t, cache.Set(context.Background(), timetableCacheKey("cached"), &models.Timetable{ID: "cached"}, 0))
	require.NoError(t, cache.Set(context.Background(), latestCacheKey(), "cached", 0))

	svc := NewTimetableService(&stubCatalogSource{}, nil, cache, nil, nil, nil, zap.NewNop(), TimetableServiceConfig{})

	tt, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", tt.ID)
}
