package amqp

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeKindDirect = "direct"
	ContentTypeJSON    = "application/json"

	argDeadLetterExchange = "x-dead-letter-exchange"
	deadLetterSuffix      = ".dlq"
	prefetchCount         = 10
)

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func Connect(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &Connection{conn: conn, channel: ch}, nil
}

func (c *Connection) Channel() Channel {
	return c.channel
}

func (c *Connection) Close() error {
	chErr := c.channel.Close()
	connErr := c.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}

// Binding routes one routing key of the exchange to a durable queue.
type Binding struct {
	Queue      string
	RoutingKey string
}

type Topology struct {
	Exchange           string
	DeadLetterExchange string
	Bindings           []Binding
}

// DeclareExchanges declares the durable direct exchange and its dead-letter
// exchange. Publishers only need this part.
func DeclareExchanges(ch Channel, t Topology) error {
	if err := ch.ExchangeDeclare(t.Exchange, ExchangeKindDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}
	if t.DeadLetterExchange == "" {
		return nil
	}
	if err := ch.ExchangeDeclare(t.DeadLetterExchange, ExchangeKindDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.DeadLetterExchange, err)
	}
	return nil
}

// DeclareTopology declares the exchanges and every bound queue. Rejected
// messages are dead-lettered to <queue>.dlq through the dead-letter exchange.
func DeclareTopology(ch Channel, t Topology) error {
	if err := DeclareExchanges(ch, t); err != nil {
		return err
	}

	for _, b := range t.Bindings {
		var args amqp.Table
		if t.DeadLetterExchange != "" {
			args = amqp.Table{argDeadLetterExchange: t.DeadLetterExchange}

			dlq := b.Queue + deadLetterSuffix
			if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
				return fmt.Errorf("failed to declare queue %s: %w", dlq, err)
			}
			if err := ch.QueueBind(dlq, b.RoutingKey, t.DeadLetterExchange, false, nil); err != nil {
				return fmt.Errorf("failed to bind queue %s: %w", dlq, err)
			}
		}

		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", b.Queue, err)
		}
	}
	return nil
}

// Publisher serialises publishes on one channel, which is not safe for
// concurrent use.
type Publisher struct {
	mu sync.Mutex
	ch Channel
}

func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}

type HandlerFunc func(ctx context.Context, body []byte) error

// Consume delivers messages from queue to handler until ctx is cancelled.
// Successful messages are acked and failed ones are rejected without requeue
// so they reach the dead-letter queue. A delivery channel closed by the
// broker is reported as amqp.ErrClosed.
func Consume(ctx context.Context, ch Channel, queue string, handler HandlerFunc, onError func(queue string, err error)) error {
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("deliveries for %s stopped: %w", queue, amqp.ErrClosed)
			}
			if err := handler(ctx, d.Body); err != nil {
				if onError != nil {
					onError(queue, err)
				}
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
