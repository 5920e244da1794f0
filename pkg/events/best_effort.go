package events

import (
	"context"
	"time"

	"library/pkg/logger"

	"github.com/google/uuid"
)

// BestEffort publishes after a committed change. A failure is logged and
// dropped so the change still succeeds. There is no outbox, so a dropped
// event is lost from the stream and the log line is the only trace of it.
type BestEffort struct {
	publisher Publisher
	exchange  string
	timeout   time.Duration
	log       *logger.Logger
}

func NewBestEffort(publisher Publisher, exchange string, timeout time.Duration, log *logger.Logger) *BestEffort {
	if publisher == nil {
		publisher = NewNopPublisher()
	}
	return &BestEffort{
		publisher: publisher,
		exchange:  exchange,
		timeout:   timeout,
		log:       log,
	}
}

func (b *BestEffort) Publish(ctx context.Context, routingKey string, payload any) {
	eventID := uuid.NewString()
	ctx = WithEventID(context.WithoutCancel(ctx), eventID)
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if err := b.publisher.Publish(ctx, b.exchange, routingKey, payload); err != nil {
		b.log.Error("failed to publish event",
			"event_id", eventID,
			"exchange", b.exchange,
			"routing_key", routingKey,
			"error", err,
		)
		return
	}
	b.log.Debug("event published", "event_id", eventID, "exchange", b.exchange, "routing_key", routingKey)
}
