// Package queue implements the durable background job backend: a Redis list
// consumed by a worker pool, plus a sorted set holding tasks scheduled for a
// later time (used for webhook retry backoff).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultQueueKey   = "jobs:queue"
	defaultDelayedKey = "jobs:scheduled"
)

// Task is the envelope stored on the queue. Payload is the task-specific
// body, decoded by the registered handler.
type Task struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Enqueuer is the producer side of the queue. Services depend on this
// interface so tests can capture scheduled work.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}) error
	EnqueueIn(ctx context.Context, delay time.Duration, taskType string, payload interface{}) error
}

// Queue is a Redis-backed task queue.
type Queue struct {
	rdb        *redis.Client
	queueKey   string
	delayedKey string
}

func New(rdb *redis.Client) *Queue {
	return &Queue{
		rdb:        rdb,
		queueKey:   defaultQueueKey,
		delayedKey: defaultDelayedKey,
	}
}

func (q *Queue) encode(taskType string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	task := Task{
		ID:      uuid.New().String(),
		Type:    taskType,
		Payload: body,
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return data, nil
}

// Enqueue pushes a task for immediate execution.
func (q *Queue) Enqueue(ctx context.Context, taskType string, payload interface{}) error {
	data, err := q.encode(taskType, payload)
	if err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, q.queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// EnqueueIn schedules a task to run after the given delay.
func (q *Queue) EnqueueIn(ctx context.Context, delay time.Duration, taskType string, payload interface{}) error {
	data, err := q.encode(taskType, payload)
	if err != nil {
		return err
	}
	due := float64(time.Now().Add(delay).Unix())
	if err := q.rdb.ZAdd(ctx, q.delayedKey, &redis.Z{Score: due, Member: data}).Err(); err != nil {
		return fmt.Errorf("failed to schedule task: %w", err)
	}
	return nil
}

// promoteDue moves tasks whose schedule time has passed onto the main queue.
// ZRem is the claim: only the worker that removes the member pushes it, so
// concurrent promoters never duplicate a task.
func (q *Queue) promoteDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().Unix())
	members, err := q.rdb.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 100,
	}).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		removed, err := q.rdb.ZRem(ctx, q.delayedKey, m).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.RPush(ctx, q.queueKey, m).Err(); err != nil {
			return err
		}
	}
	return nil
}
