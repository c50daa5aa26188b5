package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sairanjith101/acme-importer/events"
	"github.com/sairanjith101/acme-importer/queue"
	"github.com/sairanjith101/acme-importer/repository"
)

// Dispatcher fans a domain event out to every enabled subscription of its
// type, scheduling one independent delivery task per subscriber. Dispatch is
// fire-and-forget: the triggering mutation completes before any delivery.
type Dispatcher struct {
	webhooks repository.WebhookRepository
	queue    queue.Enqueuer
}

func NewDispatcher(webhooks repository.WebhookRepository, q queue.Enqueuer) *Dispatcher {
	return &Dispatcher{webhooks: webhooks, queue: q}
}

// Dispatch resolves the enabled subscribers for the event type and enqueues
// one delivery task each. Subscribers have no mutual ordering.
func (d *Dispatcher) Dispatch(ctx context.Context, evt events.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	hooks, err := d.webhooks.ListEnabled(ctx, string(evt.Type))
	if err != nil {
		return fmt.Errorf("failed to resolve subscribers for %s: %w", evt.Type, err)
	}

	for _, hook := range hooks {
		task := DeliveryTask{
			WebhookID: hook.ID,
			Event:     string(evt.Type),
			Payload:   payload,
			Attempt:   0,
		}
		// One subscriber's scheduling failure must not starve the rest.
		if err := d.queue.Enqueue(ctx, TaskDeliverWebhook, task); err != nil {
			zap.L().Error("failed to schedule delivery",
				zap.String("webhook_id", hook.ID.String()),
				zap.String("event", string(evt.Type)),
				zap.Error(err),
			)
		}
	}

	if len(hooks) > 0 {
		zap.L().Info("event dispatched",
			zap.String("event", string(evt.Type)),
			zap.Int("subscribers", len(hooks)),
		)
	}
	return nil
}
