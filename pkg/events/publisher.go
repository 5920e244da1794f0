package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"library/pkg/amqp"
	"library/pkg/kafka"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	amqp091 "github.com/rabbitmq/amqp091-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher delivers one lifecycle event to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
	Close() error
}

type eventIDKey struct{}

// WithEventID fixes the id the publisher stamps on the next message so log
// lines and broker messages can be correlated.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey{}, id)
}

// EventIDFrom returns the id set by WithEventID, or a new UUID.
func EventIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(eventIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func bookKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ─── AMQP ───

type amqpSender interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error
}

type AMQPPublisher struct {
	sender  amqpSender
	source  string
	closeFn func() error
}

// NewAMQPPublisher publishes through conn. The exchanges are declared up
// front so publishing to them never fails on a fresh broker.
func NewAMQPPublisher(conn *amqp.Connection, topology amqp.Topology, source string) (*AMQPPublisher, error) {
	if err := amqp.DeclareExchanges(conn.Channel(), topology); err != nil {
		return nil, err
	}
	return &AMQPPublisher{
		sender:  amqp.NewPublisher(conn.Channel()),
		source:  source,
		closeFn: conn.Close,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, exchange, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", routingKey, err)
	}

	return p.sender.Publish(ctx, exchange, routingKey, amqp091.Publishing{
		ContentType:  amqp.ContentTypeJSON,
		DeliveryMode: amqp091.Persistent,
		MessageId:    EventIDFrom(ctx),
		Type:         routingKey,
		AppId:        p.source,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	if p.closeFn == nil {
		return nil
	}
	return p.closeFn()
}

// ─── Kafka ───

type kafkaProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher maps the exchange onto the producer's topic and the routing
// key onto the event-type header.
type KafkaPublisher struct {
	producer kafkaProducer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

func (p *KafkaPublisher) Publish(ctx context.Context, exchange, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", routingKey, err)
	}

	key := routingKey
	if keyed, ok := payload.(Keyed); ok {
		key = keyed.PartitionKey()
	}

	msg := kafka.NewMessage().
		WithKey(key).
		WithEventID(EventIDFrom(ctx)).
		WithEventType(routingKey).
		WithSource(p.source).
		WithRawValue(body).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", routingKey, exchange, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// ─── Nop ───

type NopPublisher struct{}

func NewNopPublisher() NopPublisher { return NopPublisher{} }

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
