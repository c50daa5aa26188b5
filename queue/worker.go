package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Handler runs one task to completion. A returned error is logged for
// operational visibility; the task is not re-queued automatically.
type Handler func(ctx context.Context, task Task) error

// Worker consumes the queue with a fixed number of goroutines, each blocking
// on BLPOP, and one scheduler goroutine promoting due delayed tasks.
type Worker struct {
	queue       *Queue
	concurrency int

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewWorker(q *Queue, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		queue:       q,
		concurrency: concurrency,
		handlers:    make(map[string]Handler),
	}
}

// Register binds a task type to its handler. Must be called before Start.
func (w *Worker) Register(taskType string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = h
}

// Start launches the consumer goroutines and the delayed-task scheduler.
// It returns immediately; workers stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	zap.L().Info("job worker started",
		zap.String("queue", w.queue.queueKey),
		zap.Int("concurrency", w.concurrency),
	)
	for i := 0; i < w.concurrency; i++ {
		go w.consume(ctx)
	}
	go w.schedule(ctx)
}

func (w *Worker) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := w.queue.rdb.BLPop(ctx, 2*time.Second, w.queue.queueKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			zap.L().Error("queue BLPop failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			zap.L().Error("failed to decode task", zap.Error(err))
			continue
		}
		w.run(ctx, task)
	}
}

func (w *Worker) run(ctx context.Context, task Task) {
	w.mu.RLock()
	handler, ok := w.handlers[task.Type]
	w.mu.RUnlock()
	if !ok {
		zap.L().Warn("no handler for task type",
			zap.String("task_id", task.ID),
			zap.String("type", task.Type),
		)
		return
	}

	start := time.Now()
	if err := handler(ctx, task); err != nil {
		zap.L().Error("task failed",
			zap.String("task_id", task.ID),
			zap.String("type", task.Type),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	zap.L().Info("task completed",
		zap.String("task_id", task.ID),
		zap.String("type", task.Type),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (w *Worker) schedule(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.queue.promoteDue(ctx); err != nil && ctx.Err() == nil {
				zap.L().Error("failed to promote scheduled tasks", zap.Error(err))
			}
		}
	}
}
