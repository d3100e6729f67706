package worker

import (
	"context"

	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/observability"
)

// StartMetricsWorker feeds domain events into the Prometheus counters.
func StartMetricsWorker(dispatcher events.Dispatcher, metrics *observability.Metrics) {
	if dispatcher == nil || metrics == nil {
		return
	}
	dispatcher.Subscribe(events.EventTaskCreated, func(context.Context, events.Event) error {
		metrics.RecordTaskCreated()
		return nil
	})
	dispatcher.Subscribe(events.EventTaskDeleted, func(context.Context, events.Event) error {
		metrics.RecordTaskDeleted()
		return nil
	})
	dispatcher.Subscribe(events.EventQuotaExceeded, func(context.Context, events.Event) error {
		metrics.RecordQuotaRejection()
		return nil
	})
	dispatcher.Subscribe(events.EventSubscriptionChanged, func(_ context.Context, evt events.Event) error {
		if payload, ok := evt.Payload.(events.SubscriptionChangedPayload); ok {
			metrics.RecordSubscriptionChange(payload.IsSubscribed)
		}
		return nil
	})
	dispatcher.Subscribe(events.EventUserProvisioned, func(context.Context, events.Event) error {
		metrics.RecordUserProvisioned()
		return nil
	})
}
