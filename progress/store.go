// Package progress provides the key-value store used for job progress
// snapshots and bounded webhook delivery logs. The Store interface is
// injected into every task so components stay testable in isolation.
package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/sairanjith101/acme-importer/models"
)

// ErrNotFound is returned when no snapshot exists for a key. Pollers treat
// it as "unknown or expired", not as a failure.
var ErrNotFound = errors.New("progress: not found")

// Store is the key-value surface the pipeline needs: last-writer-wins
// progress snapshots plus a bounded, newest-first delivery log per webhook.
type Store interface {
	SetProgress(ctx context.Context, key string, p models.JobProgress) error
	GetProgress(ctx context.Context, key string) (*models.JobProgress, error)
	// PushLog prepends an entry and trims the list to max entries.
	PushLog(ctx context.Context, key string, entry models.DeliveryLogEntry, max int64) error
	// RecentLog returns up to limit entries, newest first.
	RecentLog(ctx context.Context, key string, limit int64) ([]models.DeliveryLogEntry, error)
}

// UploadProgressKey returns the snapshot key for an import job.
func UploadProgressKey(uploadID string) string {
	return fmt.Sprintf("upload:%s:progress", uploadID)
}

// BulkDeleteProgressKey returns the snapshot key for a bulk delete job.
func BulkDeleteProgressKey(taskID string) string {
	return fmt.Sprintf("bulkdelete:%s:progress", taskID)
}

// WebhookLogKey returns the delivery log key for a webhook subscription.
func WebhookLogKey(webhookID string) string {
	return fmt.Sprintf("webhook:log:%s", webhookID)
}
