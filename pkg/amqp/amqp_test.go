package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type declaredQueue struct {
	name string
	args amqp.Table
}

type binding struct {
	queue, key, exchange string
}

type fakeChannel struct {
	exchanges  []string
	queues     []declaredQueue
	bindings   []binding
	published  []amqp.Publishing
	publishErr error
	deliveries chan amqp.Delivery
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, declaredQueue{name: name, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bindings = append(f.bindings, binding{name, key, exchange})
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error { return nil }

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestDeclareTopology(t *testing.T) {
	ch := &fakeChannel{}
	err := DeclareTopology(ch, Topology{
		Exchange:           "book.events",
		DeadLetterExchange: "book.dlx",
		Bindings:           []Binding{{Queue: "q.book.created", RoutingKey: "book.created"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"book.events:direct", "book.dlx:direct"}, ch.exchanges)
	require.Len(t, ch.queues, 2)
	assert.Equal(t, "q.book.created.dlq", ch.queues[0].name)
	assert.Equal(t, "q.book.created", ch.queues[1].name)
	assert.Equal(t, "book.dlx", ch.queues[1].args["x-dead-letter-exchange"])
	assert.Contains(t, ch.bindings, binding{"q.book.created", "book.created", "book.events"})
	assert.Contains(t, ch.bindings, binding{"q.book.created.dlq", "book.created", "book.dlx"})
}

func TestPublisher_WrapsErrors(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	err := NewPublisher(ch).Publish(context.Background(), "book.events", "book.created", amqp.Publishing{})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestConsume_AcksAndNacks(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 2)}
	ack := &fakeAcknowledger{}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("bad")}
	close(ch.deliveries)

	var failed []string
	handler := func(ctx context.Context, body []byte) error {
		if string(body) == "bad" {
			return errors.New("cannot decode")
		}
		return nil
	}

	err := Consume(context.Background(), ch, "q.book.created", handler, func(queue string, err error) {
		failed = append(failed, queue)
	})
	require.ErrorIs(t, err, amqp.ErrClosed)

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
	assert.Equal(t, []string{"q.book.created"}, failed)
}

func TestConsume_StopsOnCancel(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Consume(ctx, ch, "q", func(context.Context, []byte) error { return nil }, nil) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
