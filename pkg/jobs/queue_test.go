package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{ID: "1"})
	assert.Error(t, err)
}

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	q := NewQueue("test", func(_ context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "render"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))

	assert.EqualValues(t, 3, atomic.LoadInt32(&handled))
	status, ok := q.Status("b")
	require.True(t, ok)
	assert.Equal(t, StateSucceeded, status.State)
	assert.Equal(t, 1, status.Attempts)
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("disk busy")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "run-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))

	status, ok := q.Status("run-1")
	require.True(t, ok)
	assert.Equal(t, StateSucceeded, status.State)
	assert.Equal(t, 3, status.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestQueueMarksExhaustedJobFailed(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error {
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 1, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "run-2"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))

	status, ok := q.Status("run-2")
	require.True(t, ok)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, 2, status.Attempts)
	assert.Equal(t, "boom", status.Error)
}

func TestQueueWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("test", func(context.Context, Job) error {
		<-release
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.Enqueue(Job{ID: "slow"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)
}

func TestQueueStatusUnknown(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})

	_, ok := q.Status("missing")
	assert.False(t, ok)
}
