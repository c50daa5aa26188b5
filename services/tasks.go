package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sairanjith101/acme-importer/queue"
)

// Task types executed by the job backend.
const (
	TaskImportProducts = "import_products"
	TaskBulkDelete     = "bulk_delete"
	TaskDeliverWebhook = "deliver_webhook"
)

// ImportTask starts a CSV import for an uploaded file.
type ImportTask struct {
	UploadID string `json:"upload_id"`
	FilePath string `json:"file_path"`
}

// BulkDeleteTask starts a full-table bounded delete.
type BulkDeleteTask struct {
	TaskID string `json:"task_id"`
}

// DeliveryTask is one webhook delivery attempt. Attempt counts from zero;
// retries re-enqueue the same payload with Attempt incremented.
type DeliveryTask struct {
	WebhookID uuid.UUID       `json:"webhook_id"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
}

// RegisterHandlers binds every task type to its service.
func RegisterHandlers(w *queue.Worker, importer *Importer, deleter *Deleter, delivery *DeliveryWorker) {
	w.Register(TaskImportProducts, func(ctx context.Context, task queue.Task) error {
		var t ImportTask
		if err := json.Unmarshal(task.Payload, &t); err != nil {
			return fmt.Errorf("invalid import task payload: %w", err)
		}
		return importer.Run(ctx, t.UploadID, t.FilePath)
	})
	w.Register(TaskBulkDelete, func(ctx context.Context, task queue.Task) error {
		var t BulkDeleteTask
		if err := json.Unmarshal(task.Payload, &t); err != nil {
			return fmt.Errorf("invalid bulk delete task payload: %w", err)
		}
		return deleter.Run(ctx, t.TaskID)
	})
	w.Register(TaskDeliverWebhook, func(ctx context.Context, task queue.Task) error {
		var t DeliveryTask
		if err := json.Unmarshal(task.Payload, &t); err != nil {
			return fmt.Errorf("invalid delivery task payload: %w", err)
		}
		return delivery.Deliver(ctx, t)
	})
}
