package notifier

import (
	"context"
	"fmt"

	"library/pkg/events"
	"library/pkg/logger"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	subjectBookCreated  = "New Book Added!"
	subjectBookBorrowed = "Book Borrowed!"
	subjectBookReturned = "Book Returned!"

	// Book announcements have no member to address.
	announcementRecipient = "user@example.com"
)

// Handler renders lifecycle events into notifications and fans them out.
// A failing notifier is logged and does not fail the event.
type Handler struct {
	notifiers []Notifier
	log       *logger.Logger
}

func NewHandler(log *logger.Logger, notifiers ...Notifier) *Handler {
	return &Handler{notifiers: notifiers, log: log}
}

func (h *Handler) HandleBookCreated(ctx context.Context, body []byte) error {
	var event events.BookCreated
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", events.RoutingKeyBookCreated, err)
	}

	h.dispatch(ctx, Notification{
		Subject:   subjectBookCreated,
		Body:      "Title: " + event.Title + "\nAuthor: " + event.Author,
		Recipient: announcementRecipient,
	})
	return nil
}

func (h *Handler) HandleBookBorrowed(ctx context.Context, body []byte) error {
	var event events.BookBorrowed
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", events.RoutingKeyBookBorrowed, err)
	}

	h.dispatch(ctx, Notification{
		Subject:   subjectBookBorrowed,
		Body:      "Book: " + event.BookTitle + "\nMember: " + event.MemberName + "\nDue Date: " + event.DueDate,
		Recipient: event.MemberPhone,
	})
	return nil
}

func (h *Handler) HandleBookReturned(ctx context.Context, body []byte) error {
	var event events.BookReturned
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", events.RoutingKeyBookReturned, err)
	}

	h.dispatch(ctx, Notification{
		Subject:   subjectBookReturned,
		Body:      "Book: " + event.BookTitle + "\nMember: " + event.MemberName + "\nFinesDue: 0",
		Recipient: event.MemberPhone,
	})
	return nil
}

// Routes maps each routing key to its handler.
func (h *Handler) Routes() map[string]func(ctx context.Context, body []byte) error {
	return map[string]func(ctx context.Context, body []byte) error{
		events.RoutingKeyBookCreated:  h.HandleBookCreated,
		events.RoutingKeyBookBorrowed: h.HandleBookBorrowed,
		events.RoutingKeyBookReturned: h.HandleBookReturned,
	}
}

func (h *Handler) dispatch(ctx context.Context, n Notification) {
	for _, notifier := range h.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			h.log.Error("Failed to send notification",
				"recipient", n.Recipient,
				"subject", n.Subject,
				"error", err,
			)
		}
	}
}
