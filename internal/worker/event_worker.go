// Package worker consumes analytics events from the broker and persists them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"dompet/internal/amqp"
	"dompet/internal/analytics"
	applog "dompet/internal/log"
)

// EventSink persists a single analytics event. Saving the same ID twice must
// be a no-op.
type EventSink interface {
	SaveEvent(ctx context.Context, e analytics.Event) error
}

// Consumer delivers broker messages to a handler until ctx is done.
type Consumer interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.EventMessage) error) error
}

// EventWorker moves analytics events from the queue into the event store
type EventWorker struct {
	consumer Consumer
	sink     EventSink
	logger   *applog.Logger

	processed int64
	failed    int64
}

func NewEventWorker(consumer Consumer, sink EventSink, logger *applog.Logger) *EventWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &EventWorker{
		consumer: consumer,
		sink:     sink,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent stores one message. A returned error makes the consumer
// requeue the delivery.
func (w *EventWorker) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	w.logger.DebugContext(ctx, "Processing analytics event",
		applog.FieldEventID, msg.ID,
		applog.FieldEventName, msg.Name)

	if err := w.sink.SaveEvent(ctx, analytics.FromMessage(msg)); err != nil {
		atomic.AddInt64(&w.failed, 1)
		w.logger.ErrorContext(ctx, "Failed to store analytics event",
			applog.FieldEventID, msg.ID,
			applog.FieldEventName, msg.Name,
			applog.FieldError, err)
		return fmt.Errorf("save event %s: %w", msg.ID, err)
	}

	atomic.AddInt64(&w.processed, 1)
	w.logger.InfoContext(ctx, "Stored analytics event",
		applog.FieldEventID, msg.ID,
		applog.FieldEventName, msg.Name,
		applog.FieldUserID, msg.UserID)
	return nil
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *EventWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Event worker started")
	err := w.consumer.ConsumeEvents(ctx, w.HandleEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	w.logger.InfoContext(ctx, "Event worker stopped",
		applog.FieldCount, w.Processed())
	return nil
}

// Processed returns how many events were stored
func (w *EventWorker) Processed() int64 {
	return atomic.LoadInt64(&w.processed)
}

// Failed returns how many events could not be stored
func (w *EventWorker) Failed() int64 {
	return atomic.LoadInt64(&w.failed)
}
