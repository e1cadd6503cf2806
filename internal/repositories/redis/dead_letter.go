package redis

import (
	// Go Internal Packages
	"context"
	"encoding/json"

	// Local Packages
	"pinkpay/internal/services/queue"

	// External Packages
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultDeadLetterKey = "pinkpay:dead-letter"

// DeadLetterQueue appends exhausted tasks to a redis list.
type DeadLetterQueue struct {
	client   *redis.Client
	logger   *zap.Logger
	listName string
}

func NewDeadLetterQueue(client *redis.Client, logger *zap.Logger, listName string) *DeadLetterQueue {
	if listName == "" {
		listName = DefaultDeadLetterKey
	}
	return &DeadLetterQueue{client: client, logger: logger, listName: listName}
}

// DeadLetter pushes the task as JSON onto the tail of the list.
func (q *DeadLetterQueue) DeadLetter(ctx context.Context, task *queue.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		q.logger.Error("failed to marshal task", zap.String("task_id", task.ID), zap.Error(err))
		return err
	}
	if err := q.client.RPush(ctx, q.listName, data).Err(); err != nil {
		q.logger.Error("failed to store dead-lettered task", zap.String("key", q.listName), zap.Error(err))
		return err
	}

	q.logger.Warn("task dead-lettered",
		zap.String("task_id", task.ID),
		zap.String("type", task.Type),
		zap.Int("attempts", task.Attempts),
		zap.String("last_error", task.LastError))
	return nil
}

// Len is the number of tasks waiting in the list.
func (q *DeadLetterQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.listName).Result()
}
