package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/repository"
)

const deleteBatchSize = 5000

// Deleter removes every product row in bounded batches, reporting progress
// after each batch. Already-deleted batches are never rolled back.
type Deleter struct {
	products repository.ProductRepository
	progress progress.Store
}

func NewDeleter(products repository.ProductRepository, store progress.Store) *Deleter {
	return &Deleter{products: products, progress: store}
}

// Run executes one bulk delete job.
func (s *Deleter) Run(ctx context.Context, taskID string) error {
	key := progress.BulkDeleteProgressKey(taskID)
	s.setProgress(ctx, key, models.JobProgress{Status: models.JobStatusStarting, Percent: 0})

	deleted, err := s.run(ctx, key)
	if err != nil {
		s.setProgress(ctx, key, models.JobProgress{Status: models.JobStatusFailed, Reason: err.Error()})
		return fmt.Errorf("bulk delete %s failed: %w", taskID, err)
	}

	zap.L().Info("bulk delete completed", zap.String("task_id", taskID), zap.Int("deleted", deleted))
	return nil
}

func (s *Deleter) run(ctx context.Context, key string) (int, error) {
	total64, err := s.products.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	total := int(total64)
	if total == 0 {
		s.setProgress(ctx, key, models.JobProgress{
			Status: models.JobStatusComplete, Percent: 100, Deleted: 0,
		})
		return 0, nil
	}

	deleted := 0
	for {
		n, err := s.products.DeleteBatch(ctx, deleteBatchSize)
		if err != nil {
			return 0, fmt.Errorf("failed to delete batch: %w", err)
		}
		if n == 0 {
			break
		}
		deleted += int(n)
		s.setProgress(ctx, key, models.JobProgress{
			Status: models.JobStatusDeleting, Percent: deleted * 100 / total,
			Deleted: deleted, Total: total,
		})
	}

	s.setProgress(ctx, key, models.JobProgress{
		Status: models.JobStatusComplete, Percent: 100,
		Deleted: deleted, Total: total,
	})
	return deleted, nil
}

func (s *Deleter) setProgress(ctx context.Context, key string, p models.JobProgress) {
	if err := s.progress.SetProgress(ctx, key, p); err != nil {
		zap.L().Error("failed to update progress", zap.String("key", key), zap.Error(err))
	}
}
