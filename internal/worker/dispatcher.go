package worker

import (
	"context"
	"encoding/json"

	"campaign-engine/internal/engine"
	"campaign-engine/internal/queue"
	"campaign-engine/internal/storage"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Dispatcher consumes the event dispatch queue and drives each event
// through the campaign matcher. Dispatch is one-shot: a failed event is
// logged and acked, and the periodic sweep recovers it on its next pass.
type Dispatcher struct {
	channel *amqp.Channel
	store   storage.Store
	matcher *engine.Matcher
	logger  *zap.Logger
}

func NewDispatcher(channel *amqp.Channel, store storage.Store, matcher *engine.Matcher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		store:   store,
		matcher: matcher,
		logger:  logger,
	}
}

func (d *Dispatcher) Start(ctx context.Context, queueName string) error {
	msgs, err := d.channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			d.handle(ctx, msg)
		}
	}()

	return nil
}

func (d *Dispatcher) handle(ctx context.Context, msg amqp.Delivery) {
	var em queue.EventMessage
	if err := json.Unmarshal(msg.Body, &em); err != nil {
		d.logger.Error("Failed to unmarshal event message",
			zap.Error(err),
			zap.String("body", string(msg.Body)))
		msg.Nack(false, false)
		return
	}

	event, err := d.store.GetEvent(ctx, em.EventID)
	if err != nil {
		d.logger.Error("Failed to load event for dispatch",
			zap.String("event_id", em.EventID),
			zap.Error(err))
		msg.Ack(false)
		return
	}

	if event.Processed {
		// Already handled, likely by the sweep.
		msg.Ack(false)
		return
	}

	if err := d.matcher.ProcessEvent(ctx, event); err != nil {
		// No retry here: the sweep is the durability backstop.
		d.logger.Error("Failed to process event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
	msg.Ack(false)
}
