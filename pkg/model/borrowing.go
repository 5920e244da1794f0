package model

import (
	"encoding/json"
	"time"
)

const BorrowPeriod = 14 * 24 * time.Hour

type BorrowingStatus string

const (
	StatusBorrowed BorrowingStatus = "BORROWED"
	StatusReturned BorrowingStatus = "RETURNED"
)

// Borrowing is a lending record. A record with a nil ReturnedAt is active,
// and a book has at most one active record at any time.
type Borrowing struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	MemberID   int64      `json:"member_id"`
	BorrowedAt time.Time  `json:"borrowed_date"`
	ReturnedAt *time.Time `json:"returned_date"`
}

func (b Borrowing) DueAt() time.Time {
	return b.BorrowedAt.Add(BorrowPeriod)
}

func (b Borrowing) Status() BorrowingStatus {
	if b.ReturnedAt != nil {
		return StatusReturned
	}
	return StatusBorrowed
}

func (b Borrowing) IsActive() bool {
	return b.ReturnedAt == nil
}

type borrowingView struct {
	ID         int64           `json:"id"`
	BookID     int64           `json:"book_id"`
	MemberID   int64           `json:"member_id"`
	BorrowedAt time.Time       `json:"borrowed_date"`
	DueAt      time.Time       `json:"due_date"`
	ReturnedAt *time.Time      `json:"returned_date"`
	Status     BorrowingStatus `json:"status"`
}

func (b Borrowing) view() borrowingView {
	return borrowingView{
		ID:         b.ID,
		BookID:     b.BookID,
		MemberID:   b.MemberID,
		BorrowedAt: b.BorrowedAt,
		DueAt:      b.DueAt(),
		ReturnedAt: b.ReturnedAt,
		Status:     b.Status(),
	}
}

func (b Borrowing) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.view())
}

// BorrowingDetail is a borrowing together with the book and member it refers to.
type BorrowingDetail struct {
	Borrowing
	Book   Book   `json:"book"`
	Member Member `json:"member"`
}

func (d BorrowingDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		borrowingView
		Book   Book   `json:"book"`
		Member Member `json:"member"`
	}{
		borrowingView: d.Borrowing.view(),
		Book:          d.Book,
		Member:        d.Member,
	})
}
