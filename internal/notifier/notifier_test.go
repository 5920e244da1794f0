package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"library/pkg/amqp"
	"library/pkg/events"
	"library/pkg/kafka"
	"library/pkg/logger"
	"library/pkg/model"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

func fixtures() (*model.Book, *model.Member, *model.Borrowing) {
	name := "Ann Reader"
	phone := "0123456789"
	book := &model.Book{ID: 7, Title: "Dune", Author: "Frank Herbert"}
	member := &model.Member{ID: 3, Name: &name, Email: "ann@example.com", Phone: &phone}
	borrowing := &model.Borrowing{ID: 1, BookID: 7, MemberID: 3, BorrowedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	return book, member, borrowing
}

func mustEncode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandler_RendersNotifications(t *testing.T) {
	book, member, borrowing := fixtures()
	returnedAt := borrowing.BorrowedAt.Add(48 * time.Hour)
	returned := *borrowing
	returned.ReturnedAt = &returnedAt

	tests := []struct {
		name   string
		handle func(h *Handler) func(context.Context, []byte) error
		body   any
		want   Notification
	}{
		{
			name:   "book created",
			handle: func(h *Handler) func(context.Context, []byte) error { return h.HandleBookCreated },
			body:   events.NewBookCreated(book),
			want: Notification{
				Subject:   "New Book Added!",
				Body:      "Title: Dune\nAuthor: Frank Herbert",
				Recipient: "user@example.com",
			},
		},
		{
			name:   "book borrowed",
			handle: func(h *Handler) func(context.Context, []byte) error { return h.HandleBookBorrowed },
			body:   events.NewBookBorrowed(book, member, borrowing),
			want: Notification{
				Subject:   "Book Borrowed!",
				Body:      "Book: Dune\nMember: Ann Reader\nDue Date: 2024-03-15T10:00:00Z",
				Recipient: "0123456789",
			},
		},
		{
			name:   "book returned",
			handle: func(h *Handler) func(context.Context, []byte) error { return h.HandleBookReturned },
			body:   events.NewBookReturned(book, member, &returned),
			want: Notification{
				Subject:   "Book Returned!",
				Body:      "Book: Dune\nMember: Ann Reader\nFinesDue: 0",
				Recipient: "0123456789",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, sms := &recordingNotifier{}, &recordingNotifier{}
			h := NewHandler(logger.Discard(), email, sms)

			require.NoError(t, tt.handle(h)(context.Background(), mustEncode(t, tt.body)))

			assert.Equal(t, []Notification{tt.want}, email.notifications())
			assert.Equal(t, []Notification{tt.want}, sms.notifications())
		})
	}
}

func TestHandler_FailingNotifierDoesNotFailEvent(t *testing.T) {
	book, _, _ := fixtures()
	broken := &recordingNotifier{err: errors.New("gateway down")}
	working := &recordingNotifier{}
	h := NewHandler(logger.Discard(), broken, working)

	err := h.HandleBookCreated(context.Background(), mustEncode(t, events.NewBookCreated(book)))

	require.NoError(t, err)
	assert.Len(t, working.notifications(), 1)
}

func TestHandler_DecodeErrorIsReturned(t *testing.T) {
	sink := &recordingNotifier{}
	h := NewHandler(logger.Discard(), sink)

	err := h.HandleBookBorrowed(context.Background(), []byte("{not json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), events.RoutingKeyBookBorrowed)
	assert.Empty(t, sink.notifications())
}

func TestLogNotifier_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMSNotifier(logger.Discard()).Notify(ctx, Notification{Subject: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, NewEmailNotifier(logger.Discard()).Notify(context.Background(), Notification{Subject: "x"}))
}

func TestKafkaHandler_DispatchesOnEventType(t *testing.T) {
	book, _, _ := fixtures()
	sink := &recordingNotifier{}
	handle := KafkaHandler(NewHandler(logger.Discard(), sink))

	msg := kafka.NewMessage().
		WithKey("7").
		WithEventType(events.RoutingKeyBookCreated).
		WithRawValue(mustEncode(t, events.NewBookCreated(book))).
		Build()
	require.NoError(t, handle(context.Background(), msg))
	require.Len(t, sink.notifications(), 1)
	assert.Equal(t, "New Book Added!", sink.notifications()[0].Subject)

	unknown := kafka.NewMessage().WithEventType("book.lost").WithRawValue([]byte("{}")).Build()
	err := handle(context.Background(), unknown)
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	garbage := kafka.NewMessage().WithEventType(events.RoutingKeyBookReturned).WithRawValue([]byte("nope")).Build()
	err = handle(context.Background(), garbage)
	require.Error(t, err)
	assert.False(t, kafka.ShouldRetry(err, 0, 3))
}

type fakeChannel struct {
	mu         sync.Mutex
	queues     []string
	bindings   map[string]string
	deliveries map[string]chan amqp091.Delivery
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{bindings: map[string]string{}, deliveries: map[string]chan amqp091.Delivery{}}
}

func (f *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp091.Table) error {
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, name)
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp091.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[name] = exchange + "/" + key
	return nil
}

func (f *fakeChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp091.Publishing) error {
	return nil
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }

func (f *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp091.Table) (<-chan amqp091.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Queues without deliveries stay open until the consumer is cancelled.
	ch, ok := f.deliveries[queue]
	if !ok {
		ch = make(chan amqp091.Delivery)
	}
	return ch, nil
}

func (f *fakeChannel) Close() error { return nil }

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

var _ amqp.Channel = (*fakeChannel)(nil)

func TestConsumeAMQP_DeclaresQueuesAndRoutesDeliveries(t *testing.T) {
	book, member, borrowing := fixtures()
	ch := newFakeChannel()
	ack := &fakeAcknowledger{}

	borrowed := make(chan amqp091.Delivery, 2)
	borrowed <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: mustEncode(t, events.NewBookBorrowed(book, member, borrowing))}
	borrowed <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("broken")}
	ch.deliveries[events.QueueBookBorrowed] = borrowed

	sink := &recordingNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ConsumeAMQP(ctx, ch, "book.events", "book.dlx", NewHandler(logger.Discard(), sink), logger.Discard())
	}()

	require.Eventually(t, func() bool {
		ack.mu.Lock()
		defer ack.mu.Unlock()
		return len(ack.acked)+len(ack.nacked) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	ch.mu.Lock()
	assert.Equal(t, "book.events/book.created", ch.bindings[events.QueueBookCreated])
	assert.Equal(t, "book.events/book.borrowed", ch.bindings[events.QueueBookBorrowed])
	assert.Equal(t, "book.events/book.returned", ch.bindings[events.QueueBookReturned])
	assert.Equal(t, "book.dlx/book.returned", ch.bindings[events.QueueBookReturned+".dlq"])
	assert.Len(t, ch.queues, 6)
	ch.mu.Unlock()

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
	require.Len(t, sink.notifications(), 1)
	assert.Equal(t, "Book Borrowed!", sink.notifications()[0].Subject)
}

func TestConsumeAMQP_LostConnectionIsAnError(t *testing.T) {
	ch := newFakeChannel()
	closed := make(chan amqp091.Delivery)
	close(closed)
	ch.deliveries[events.QueueBookReturned] = closed

	err := ConsumeAMQP(context.Background(), ch, "book.events", "book.dlx", NewHandler(logger.Discard()), logger.Discard())

	require.ErrorIs(t, err, amqp091.ErrClosed)
	assert.Contains(t, err.Error(), events.QueueBookReturned)
}
