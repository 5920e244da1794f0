package repository

import (
	"context"
	"time"

	"library/pkg/model"
)

// LockMode selects between a plain read and a row lock held until the
// surrounding transaction ends.
type LockMode int

const (
	LockNone LockMode = iota
	LockExclusive
)

type BookRepository interface {
	FindByID(ctx context.Context, id int64, lock LockMode) (*model.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*model.Book, error)
	FindAll(ctx context.Context, filter model.BookFilter, page model.Page) ([]*model.Book, error)
	Create(ctx context.Context, book *model.Book) error
	Update(ctx context.Context, book *model.Book) error
	SetAvailability(ctx context.Context, id int64, available bool, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type MemberRepository interface {
	FindByID(ctx context.Context, id int64, lock LockMode) (*model.Member, error)
	FindByEmail(ctx context.Context, email string) (*model.Member, error)
	FindByPhone(ctx context.Context, phone string) (*model.Member, error)
	FindAll(ctx context.Context, page model.Page) ([]*model.Member, error)
	Create(ctx context.Context, member *model.Member) error
	Update(ctx context.Context, member *model.Member) error
	Delete(ctx context.Context, id int64) error
}

type BorrowingRepository interface {
	FindActiveByBook(ctx context.Context, bookID int64, lock LockMode) (*model.Borrowing, error)
	FindActiveByBookAndMember(ctx context.Context, bookID, memberID int64, lock LockMode) (*model.Borrowing, error)
	ExistsForBook(ctx context.Context, bookID int64) (bool, error)
	ExistsForMember(ctx context.Context, memberID int64) (bool, error)
	Create(ctx context.Context, borrowing *model.Borrowing) error
	MarkReturned(ctx context.Context, id int64, at time.Time) error
	FindActive(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error)
	FindByMember(ctx context.Context, memberID int64, page model.Page) ([]*model.BorrowingDetail, error)
	FindByBook(ctx context.Context, bookID int64, page model.Page) ([]*model.BorrowingDetail, error)
	FindAll(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error)
}

// Queries exposes the three repositories bound to one connection or
// transaction.
type Queries interface {
	Books() BookRepository
	Members() MemberRepository
	Borrowings() BorrowingRepository
}

type TransactionFunc func(ctx context.Context, q Queries) error

// Store is the entity store. Calls made directly on the Store run outside any
// transaction. Calls made on the Queries handed to ExecuteTransaction run
// inside it and may take exclusive row locks.
type Store interface {
	Queries
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
	Ping(ctx context.Context) error
}
