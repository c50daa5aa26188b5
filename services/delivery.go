package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/queue"
	"github.com/sairanjith101/acme-importer/repository"
)

const (
	deliveryTimeout = 10 * time.Second
	// Initial attempt plus up to five retries, each delayed 60*2^attempt
	// seconds from the failure that scheduled it.
	maxDeliveryRetries = 5
	retryBaseDelay     = 60 * time.Second
	// The delivery log keeps the 100 most recent entries per webhook.
	deliveryLogCap = 100
)

// DeliveryWorker performs one webhook delivery attempt per invocation.
// Any response that is not a server error counts as delivered; transport
// failures and 5xx responses are retried with exponential backoff until the
// retry limit is reached, then recorded as a terminal failure.
type DeliveryWorker struct {
	webhooks repository.WebhookRepository
	progress progress.Store
	queue    queue.Enqueuer
	client   *http.Client
}

func NewDeliveryWorker(webhooks repository.WebhookRepository, store progress.Store, q queue.Enqueuer) *DeliveryWorker {
	return &DeliveryWorker{
		webhooks: webhooks,
		progress: store,
		queue:    q,
		client:   &http.Client{Timeout: deliveryTimeout},
	}
}

// Deliver runs one attempt of the delivery state machine.
func (w *DeliveryWorker) Deliver(ctx context.Context, t DeliveryTask) error {
	hook, err := w.webhooks.FindByID(ctx, t.WebhookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Subscription deleted since dispatch; nothing to deliver.
			return nil
		}
		return fmt.Errorf("failed to load webhook %s: %w", t.WebhookID, err)
	}

	logKey := progress.WebhookLogKey(hook.ID.String())
	start := time.Now()
	status, postErr := w.post(ctx, hook.URL, t.Payload)
	latency := time.Since(start).Milliseconds()

	entry := models.DeliveryLogEntry{
		Event:     t.Event,
		LatencyMS: latency,
		Timestamp: time.Now().UTC(),
	}
	var failure string
	switch {
	case postErr != nil:
		entry.Error = postErr.Error()
		failure = postErr.Error()
	case status >= http.StatusInternalServerError:
		entry.StatusCode = status
		failure = fmt.Sprintf("HTTP %d", status)
	default:
		// 2xx-4xx: the endpoint answered, so the attempt terminates here.
		entry.StatusCode = status
	}
	w.pushLog(ctx, logKey, entry)

	if failure == "" {
		return nil
	}

	if t.Attempt < maxDeliveryRetries {
		delay := retryBaseDelay * time.Duration(1<<t.Attempt)
		next := t
		next.Attempt++
		zap.L().Warn("webhook delivery failed, retry scheduled",
			zap.String("webhook_id", hook.ID.String()),
			zap.String("event", t.Event),
			zap.Int("attempt", t.Attempt),
			zap.Duration("delay", delay),
			zap.String("failure", failure),
		)
		if err := w.queue.EnqueueIn(ctx, delay, TaskDeliverWebhook, next); err != nil {
			return fmt.Errorf("failed to schedule retry for webhook %s: %w", hook.ID, err)
		}
		return nil
	}

	w.pushLog(ctx, logKey, models.DeliveryLogEntry{
		Event:        t.Event,
		FinalFailure: failure,
		Timestamp:    time.Now().UTC(),
	})
	zap.L().Error("webhook delivery exhausted retries",
		zap.String("webhook_id", hook.ID.String()),
		zap.String("event", t.Event),
		zap.String("failure", failure),
	)
	return nil
}

func (w *DeliveryWorker) post(ctx context.Context, url string, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (w *DeliveryWorker) pushLog(ctx context.Context, key string, entry models.DeliveryLogEntry) {
	if err := w.progress.PushLog(ctx, key, entry, deliveryLogCap); err != nil {
		zap.L().Error("failed to append delivery log", zap.String("key", key), zap.Error(err))
	}
}
