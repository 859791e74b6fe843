package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Likith-04/Tibl.ai/internal/scheduler"
)

func TestMetricsServiceObserveRun(t *testing.T) {
	m := NewMetricsService()

	m.ObserveRun(10*time.Millisecond, &scheduler.Stats{LabDirect: 3, LabRelocated: 1, LabAnomalies: 2, UnmetSessions: 4})
	m.ObserveRun(time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runTotal.WithLabelValues(RunOutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runTotal.WithLabelValues(RunOutcomeError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.labPlacements.WithLabelValues("direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.labPlacements.WithLabelValues("relocation")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.labPlacements.WithLabelValues("forced")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.labPlacements.WithLabelValues("marker")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.unmetSessions))
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.InDelta(t, 2.0/3.0, testutil.ToFloat64(m.cacheHitRatio), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses))
}

func TestMetricsServiceArtifactJobs(t *testing.T) {
	m := NewMetricsService()

	m.RecordArtifactJob(true)
	m.RecordArtifactJob(false)
	m.RecordArtifactJob(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.artifactJobs.WithLabelValues(RunOutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.artifactJobs.WithLabelValues(RunOutcomeError)))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService

	assert.NotPanics(t, func() {
		m.ObserveRun(time.Second, nil)
		m.ObserveHTTPRequest("GET", "/", 200, time.Second)
		m.RecordArtifactJob(true)
	})
}
