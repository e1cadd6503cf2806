package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pinkpay/internal/clock"
	domainErrors "pinkpay/internal/errors"
)

type recordingSink struct {
	mu    sync.Mutex
	tasks []Task
}

func (s *recordingSink) DeadLetter(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, *task)
	return nil
}

func (s *recordingSink) received() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.tasks...)
}

func newQueue(t *testing.T, cfg Config, sink DeadLetterSink) *Queue {
	t.Helper()
	q := New(cfg, sink, clock.NewMock(time.Now()), zap.NewNop())
	t.Cleanup(func() { _ = q.Stop() })
	return q
}

func waitFor(t *testing.T, q *Queue, done func(Stats) bool) Stats {
	t.Helper()
	require.Eventually(t, func() bool { return done(q.Stats()) }, 2*time.Second, 5*time.Millisecond)
	return q.Stats()
}

func TestQueue_PriorityOrder(t *testing.T) {
	q := newQueue(t, Config{Workers: 1}, nil)

	var mu sync.Mutex
	var order []string
	q.Register("record", func(_ context.Context, task *Task) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, task.Payload["name"].(string))
		return nil
	})

	ctx := context.Background()
	for _, tc := range []struct {
		name     string
		priority int
	}{{"a", 1}, {"b", 5}, {"c", 5}, {"d", 1}, {"e", 7}} {
		_, err := q.Enqueue(ctx, "record", map[string]any{"name": tc.name}, tc.priority)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, q.Stats().Pending)

	require.NoError(t, q.Start(ctx))
	waitFor(t, q, func(s Stats) bool { return s.Completed == 5 })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"e", "b", "c", "a", "d"}, order)
}

func TestQueue_Retries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		permanent    bool
		wantAttempts int32
		wantStats    Stats
	}{
		{
			name:         "succeeds first time",
			wantAttempts: 1,
			wantStats:    Stats{Completed: 1},
		},
		{
			name:         "succeeds after two failures",
			failures:     2,
			wantAttempts: 3,
			wantStats:    Stats{Completed: 1, Failed: 2, Retried: 2},
		},
		{
			name:         "exhausts retries",
			failures:     100,
			wantAttempts: 4,
			wantStats:    Stats{Failed: 4, Retried: 3, DeadLettered: 1},
		},
		{
			name:         "permanent failure",
			failures:     100,
			permanent:    true,
			wantAttempts: 1,
			wantStats:    Stats{Failed: 1, DeadLettered: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			q := newQueue(t, Config{Workers: 2, MaxRetries: 3}, sink)

			var attempts atomic.Int32
			q.Register("flaky", func(context.Context, *Task) error {
				n := attempts.Add(1)
				if int(n) <= tt.failures {
					err := errors.New("downstream unavailable")
					if tt.permanent {
						return Permanent(err)
					}
					return err
				}
				return nil
			})

			ctx := context.Background()
			require.NoError(t, q.Start(ctx))
			_, err := q.Enqueue(ctx, "flaky", nil, 0)
			require.NoError(t, err)

			stats := waitFor(t, q, func(s Stats) bool { return s.Completed+s.DeadLettered == 1 })
			assert.Equal(t, tt.wantAttempts, attempts.Load())
			assert.Equal(t, tt.wantStats.Completed, stats.Completed)
			assert.Equal(t, tt.wantStats.Failed, stats.Failed)
			assert.Equal(t, tt.wantStats.Retried, stats.Retried)
			assert.Equal(t, tt.wantStats.DeadLettered, stats.DeadLettered)

			if tt.wantStats.DeadLettered > 0 {
				require.Eventually(t, func() bool { return len(sink.received()) == 1 }, time.Second, 5*time.Millisecond)
				task := sink.received()[0]
				assert.Equal(t, int(tt.wantAttempts), task.Attempts)
				assert.Equal(t, "downstream unavailable", task.LastError)
				assert.Equal(t, "flaky", task.Type)
			} else {
				assert.Empty(t, sink.received())
			}
		})
	}
}

func TestQueue_PanicIsAFailure(t *testing.T) {
	q := newQueue(t, Config{Workers: 1, MaxRetries: -1}, LogSink{Logger: zap.NewNop()})
	q.Register("boom", func(context.Context, *Task) error { panic("nil map") })

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	_, err := q.Enqueue(ctx, "boom", nil, 0)
	require.NoError(t, err)

	stats := waitFor(t, q, func(s Stats) bool { return s.DeadLettered == 1 })
	assert.Equal(t, int64(1), stats.Failed)
	assert.Zero(t, stats.Running)
}

func TestQueue_ManyWorkers(t *testing.T) {
	q := newQueue(t, Config{Workers: 4}, nil)

	var processed atomic.Int64
	q.Register("count", func(context.Context, *Task) error {
		processed.Add(1)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	for i := 0; i < 100; i++ {
		_, err := q.Enqueue(ctx, "count", nil, i%3)
		require.NoError(t, err)
	}

	stats := waitFor(t, q, func(s Stats) bool { return s.Completed == 100 })
	assert.Equal(t, int64(100), processed.Load())
	assert.Equal(t, 4, stats.Workers)
	assert.Zero(t, stats.Pending)
}

func TestQueue_Lifecycle(t *testing.T) {
	q := newQueue(t, Config{}, nil)
	q.Register("noop", func(context.Context, *Task) error { return nil })
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "missing", nil, 0)
	assert.ErrorIs(t, err, domainErrors.ErrValidation)

	require.NoError(t, q.Start(ctx))
	assert.ErrorIs(t, q.Start(ctx), ErrRunning)
	assert.Equal(t, DefaultWorkers, q.Stats().Workers)

	require.NoError(t, q.Stop())
	_, err = q.Enqueue(ctx, "noop", nil, 0)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, q.Start(ctx), ErrStopped)
}

func TestQueue_StopWaitsForRunningTask(t *testing.T) {
	q := newQueue(t, Config{Workers: 1}, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	q.Register("slow", func(ctx context.Context, _ *Task) error {
		close(started)
		<-release
		finished.Store(ctx.Err() == nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	_, err := q.Enqueue(ctx, "slow", nil, 0)
	require.NoError(t, err)
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- q.Stop() }()
	cancel()
	close(release)

	require.NoError(t, <-stopped)
	assert.True(t, finished.Load(), "running task must keep a live context")
	assert.Equal(t, int64(1), q.Stats().Completed)
}
