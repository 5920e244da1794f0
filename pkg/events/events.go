package events

import (
	"time"

	"library/pkg/model"
)

const (
	RoutingKeyBookCreated  = "book.created"
	RoutingKeyBookBorrowed = "book.borrowed"
	RoutingKeyBookReturned = "book.returned"

	QueueBookCreated  = "q.book.created"
	QueueBookBorrowed = "q.book.borrowed"
	QueueBookReturned = "q.book.returned"

	EventBookCreated  = "book_created"
	EventBookBorrowed = "book_borrowed"
	EventBookReturned = "book_returned"
)

// Keyed is implemented by payloads that carry a partition key. Events for
// the same book share a key so their order is kept on Kafka.
type Keyed interface {
	PartitionKey() string
}

type BookCreated struct {
	Event       string `json:"event"`
	BookID      int64  `json:"book_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

func NewBookCreated(b *model.Book) BookCreated {
	desc := ""
	if b.Description != nil {
		desc = *b.Description
	}
	return BookCreated{
		Event:       EventBookCreated,
		BookID:      b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: desc,
	}
}

func (e BookCreated) PartitionKey() string { return bookKey(e.BookID) }

type BookBorrowed struct {
	Event        string `json:"event"`
	BookID       int64  `json:"book_id"`
	MemberID     int64  `json:"member_id"`
	BookTitle    string `json:"book_title"`
	MemberName   string `json:"member_name"`
	MemberPhone  string `json:"member_phone"`
	MemberEmail  string `json:"member_email"`
	BorrowedDate string `json:"borrowed_date"`
	DueDate      string `json:"due_date"`
}

func NewBookBorrowed(b *model.Book, m *model.Member, borrowing *model.Borrowing) BookBorrowed {
	return BookBorrowed{
		Event:        EventBookBorrowed,
		BookID:       b.ID,
		MemberID:     m.ID,
		BookTitle:    b.Title,
		MemberName:   m.DisplayName(),
		MemberPhone:  m.PhoneNumber(),
		MemberEmail:  m.Email,
		BorrowedDate: formatDate(borrowing.BorrowedAt),
		DueDate:      formatDate(borrowing.DueAt()),
	}
}

func (e BookBorrowed) PartitionKey() string { return bookKey(e.BookID) }

type BookReturned struct {
	BookBorrowed
	ReturnedDate string `json:"returned_date"`
}

func NewBookReturned(b *model.Book, m *model.Member, borrowing *model.Borrowing) BookReturned {
	borrowed := NewBookBorrowed(b, m, borrowing)
	borrowed.Event = EventBookReturned

	returned := BookReturned{BookBorrowed: borrowed}
	if borrowing.ReturnedAt != nil {
		returned.ReturnedDate = formatDate(*borrowing.ReturnedAt)
	}
	return returned
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
