package notifier

import (
	"context"
	"fmt"

	"library/pkg/amqp"
	"library/pkg/events"
	"library/pkg/kafka"
	"library/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Queues binds one durable queue per lifecycle event.
var Queues = []amqp.Binding{
	{Queue: events.QueueBookCreated, RoutingKey: events.RoutingKeyBookCreated},
	{Queue: events.QueueBookBorrowed, RoutingKey: events.RoutingKeyBookBorrowed},
	{Queue: events.QueueBookReturned, RoutingKey: events.RoutingKeyBookReturned},
}

// ConsumeAMQP declares the notifier topology and consumes every queue until
// ctx is cancelled. Each queue gets its own goroutine on the shared channel.
func ConsumeAMQP(ctx context.Context, ch amqp.Channel, exchange, deadLetterExchange string, h *Handler, log *logger.Logger) error {
	topology := amqp.Topology{
		Exchange:           exchange,
		DeadLetterExchange: deadLetterExchange,
		Bindings:           Queues,
	}
	if err := amqp.DeclareTopology(ch, topology); err != nil {
		return err
	}

	routes := h.Routes()
	onError := func(queue string, err error) {
		log.Error("Failed to handle event, message dead-lettered", "queue", queue, "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range Queues {
		handle := routes[b.RoutingKey]
		g.Go(func() error {
			log.Info("Consuming queue", "queue", b.Queue, "routing_key", b.RoutingKey)
			return amqp.Consume(gctx, ch, b.Queue, amqp.HandlerFunc(handle), onError)
		})
	}
	return g.Wait()
}

// KafkaHandler dispatches on the event-type header. Unknown types and
// undecodable payloads are permanent failures so they go to the DLQ.
func KafkaHandler(h *Handler) kafka.MessageHandler {
	routes := h.Routes()
	return func(ctx context.Context, msg kafka.Message) error {
		handle, ok := routes[msg.GetEventType()]
		if !ok {
			return kafka.NewPermanentError(fmt.Sprintf("unknown event type %q", msg.GetEventType()), nil)
		}
		if err := handle(ctx, msg.Value); err != nil {
			return kafka.NewPermanentError("failed to handle event", err)
		}
		return nil
	}
}
