package queue

import (
	"container/heap"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Task struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
	Priority   int            `json:"priority"`
	Attempts   int            `json:"attempts"`
	MaxRetries int            `json:"max_retries"`
	LastError  string         `json:"last_error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	seq uint64
}

// Handler processes one task. Returning an error schedules a retry unless
// the error is Permanent.
type Handler func(ctx context.Context, task *Task) error

// DeadLetterSink receives tasks that exhausted their retries.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, task *Task) error
}

// LogSink only logs dead-lettered tasks.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) DeadLetter(_ context.Context, task *Task) error {
	s.Logger.Error("task dead-lettered",
		zap.String("task_id", task.ID),
		zap.String("type", task.Type),
		zap.Int("attempts", task.Attempts),
		zap.String("last_error", task.LastError))
	return nil
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// taskHeap orders by priority, highest first, then by arrival.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*Task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

var _ heap.Interface = (*taskHeap)(nil)
