// Package queue runs background work such as transaction processing on a
// fixed pool of workers, retrying failed tasks and dead-lettering the ones
// that keep failing.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pinkpay/internal/clock"
	domainErrors "pinkpay/internal/errors"
)

const (
	DefaultWorkers     = 4
	DefaultMaxRetries  = 3
	DefaultTaskTimeout = 30 * time.Second
)

var (
	ErrStopped = errors.New("queue stopped")
	ErrRunning = errors.New("queue already started")
)

type Config struct {
	Workers int
	// MaxRetries defaults to DefaultMaxRetries; a negative value disables
	// retries.
	MaxRetries  int
	TaskTimeout time.Duration
}

type Stats struct {
	Workers      int   `json:"workers"`
	Pending      int   `json:"pending"`
	Running      int   `json:"running"`
	Completed    int64 `json:"completed"`
	Failed       int64 `json:"failed"`
	Retried      int64 `json:"retried"`
	DeadLettered int64 `json:"dead_lettered"`
}

type Queue struct {
	config   Config
	sink     DeadLetterSink
	clock    clock.Clock
	logger   *zap.Logger
	handlers map[string]Handler

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   taskHeap
	seq     uint64
	stopped bool
	stats   Stats

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a stopped queue. Register handlers before Start.
func New(cfg Config, sink DeadLetterSink, clk clock.Clock, logger *zap.Logger) *Queue {
	if clk == nil {
		panic("clock is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if sink == nil {
		sink = LogSink{Logger: logger}
	}

	q := &Queue{
		config:   cfg,
		sink:     sink,
		clock:    clk,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) Register(taskType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

// Enqueue adds a task. Tasks may be queued before Start; they run once the
// workers are up.
func (q *Queue) Enqueue(_ context.Context, taskType string, payload map[string]any, priority int) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return "", ErrStopped
	}
	if _, ok := q.handlers[taskType]; !ok {
		return "", domainErrors.Validation("UNKNOWN_TASK", "no handler for task type %q", taskType)
	}

	q.seq++
	task := &Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Payload:    payload,
		Priority:   priority,
		MaxRetries: q.config.MaxRetries,
		CreatedAt:  q.clock.Now(),
		seq:        q.seq,
	}
	heap.Push(&q.tasks, task)
	q.cond.Signal()

	q.logger.Debug("task queued",
		zap.String("task_id", task.ID), zap.String("type", taskType), zap.Int("priority", priority))
	return task.ID, nil
}

// Start launches the workers. They stop when ctx is cancelled or Stop is
// called.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.group != nil {
		q.mu.Unlock()
		return ErrRunning
	}
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	ctx, q.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	q.group = g
	q.mu.Unlock()

	context.AfterFunc(gctx, q.close)

	for i := 0; i < q.config.Workers; i++ {
		worker := i
		g.Go(func() error {
			q.work(gctx, worker)
			return nil
		})
	}
	q.logger.Info("task queue started", zap.Int("workers", q.config.Workers))
	return nil
}

// Stop refuses new tasks and waits for running ones to finish. Pending
// tasks are dropped.
func (q *Queue) Stop() error {
	q.mu.Lock()
	cancel, g := q.cancel, q.group
	q.mu.Unlock()

	q.close()
	if cancel == nil {
		return nil
	}
	cancel()
	err := g.Wait()

	q.mu.Lock()
	dropped := len(q.tasks)
	q.mu.Unlock()
	q.logger.Info("task queue stopped", zap.Int("dropped", dropped))
	return err
}

func (q *Queue) close() {
	q.mu.Lock()
	q.stopped = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Workers = q.config.Workers
	s.Pending = len(q.tasks)
	return s
}

// next blocks until a task is available. It returns false once stopped.
func (q *Queue) next() (*Task, Handler, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return nil, nil, false
	}
	task := heap.Pop(&q.tasks).(*Task)
	q.stats.Running++
	return task, q.handlers[task.Type], true
}

func (q *Queue) work(ctx context.Context, worker int) {
	for {
		task, h, ok := q.next()
		if !ok {
			return
		}
		// Running tasks finish even when the queue is stopping.
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.config.TaskTimeout)
		err := q.run(taskCtx, h, task)
		cancel()
		q.finish(ctx, worker, task, err)
	}
}

func (q *Queue) run(ctx context.Context, h Handler, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.ID, r)
		}
	}()
	return h(ctx, task)
}

func (q *Queue) finish(ctx context.Context, worker int, task *Task, err error) {
	q.mu.Lock()
	q.stats.Running--
	if err == nil {
		q.stats.Completed++
		q.mu.Unlock()
		q.logger.Debug("task completed", zap.String("task_id", task.ID), zap.Int("worker", worker))
		return
	}

	q.stats.Failed++
	task.Attempts++
	task.LastError = err.Error()

	if !IsPermanent(err) && task.Attempts <= task.MaxRetries && !q.stopped {
		q.stats.Retried++
		heap.Push(&q.tasks, task)
		q.cond.Signal()
		q.mu.Unlock()
		q.logger.Warn("task failed, retrying",
			zap.String("task_id", task.ID),
			zap.String("type", task.Type),
			zap.Int("attempt", task.Attempts),
			zap.Int("max_retries", task.MaxRetries),
			zap.Error(err))
		return
	}

	q.stats.DeadLettered++
	q.mu.Unlock()

	if sinkErr := q.sink.DeadLetter(context.WithoutCancel(ctx), task); sinkErr != nil {
		q.logger.Error("failed to dead-letter task",
			zap.String("task_id", task.ID), zap.Error(sinkErr))
	}
}
