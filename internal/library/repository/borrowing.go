package repository

import (
	"context"
	"time"

	"library/pkg/model"

	"github.com/jackc/pgx/v5"
)

type pgBorrowingRepository struct {
	q *pgQueries
}

func scanBorrowing(row pgx.Row) (*model.Borrowing, error) {
	var b model.Borrowing
	if err := row.Scan(&b.ID, &b.BookID, &b.MemberID, &b.BorrowedAt, &b.ReturnedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBorrowingDetail(row pgx.Row) (*model.BorrowingDetail, error) {
	var d model.BorrowingDetail
	err := row.Scan(
		&d.ID, &d.BookID, &d.MemberID, &d.BorrowedAt, &d.ReturnedAt,
		&d.Book.ID, &d.Book.Title, &d.Book.Author, &d.Book.ISBN, &d.Book.Description, &d.Book.IsAvailable, &d.Book.CreatedAt, &d.Book.UpdatedAt,
		&d.Member.ID, &d.Member.Name, &d.Member.Email, &d.Member.Phone, &d.Member.CreatedAt, &d.Member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *pgBorrowingRepository) FindActiveByBook(ctx context.Context, bookID int64, lock LockMode) (*model.Borrowing, error) {
	if err := r.q.checkLock(lock); err != nil {
		return nil, err
	}
	query, err := selectActiveBorrowingQuery(bookID, nil, lock)
	return queryOne(ctx, r.q, "find active borrowing", query, err, scanBorrowing)
}

func (r *pgBorrowingRepository) FindActiveByBookAndMember(ctx context.Context, bookID, memberID int64, lock LockMode) (*model.Borrowing, error) {
	if err := r.q.checkLock(lock); err != nil {
		return nil, err
	}
	query, err := selectActiveBorrowingQuery(bookID, &memberID, lock)
	return queryOne(ctx, r.q, "find active borrowing", query, err, scanBorrowing)
}

func (r *pgBorrowingRepository) ExistsForBook(ctx context.Context, bookID int64) (bool, error) {
	query, err := existsBorrowingQuery(colBookID, bookID)
	return r.q.exists(ctx, "check book history", query, err)
}

func (r *pgBorrowingRepository) ExistsForMember(ctx context.Context, memberID int64) (bool, error) {
	query, err := existsBorrowingQuery(colMemberID, memberID)
	return r.q.exists(ctx, "check member history", query, err)
}

func (r *pgBorrowingRepository) Create(ctx context.Context, borrowing *model.Borrowing) error {
	query, err := insertBorrowingQuery(borrowing)
	id, err := r.q.insert(ctx, "create borrowing", query, err)
	if err != nil {
		return err
	}
	borrowing.ID = id
	return nil
}

// MarkReturned only touches an active record. A record that is already
// returned yields ErrNotFound.
func (r *pgBorrowingRepository) MarkReturned(ctx context.Context, id int64, at time.Time) error {
	query, err := markReturnedQuery(id, at)
	return r.q.exec(ctx, "mark borrowing returned", query, err)
}

func (r *pgBorrowingRepository) FindActive(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
	query, err := selectBorrowingDetailsQuery(activeBorrowingsFilter(), page)
	return queryAll(ctx, r.q, "list active borrowings", query, err, scanBorrowingDetail)
}

func (r *pgBorrowingRepository) FindByMember(ctx context.Context, memberID int64, page model.Page) ([]*model.BorrowingDetail, error) {
	query, err := selectBorrowingDetailsQuery(borrowingsByFilter(colMemberID, memberID), page)
	return queryAll(ctx, r.q, "list member borrowings", query, err, scanBorrowingDetail)
}

func (r *pgBorrowingRepository) FindByBook(ctx context.Context, bookID int64, page model.Page) ([]*model.BorrowingDetail, error) {
	query, err := selectBorrowingDetailsQuery(borrowingsByFilter(colBookID, bookID), page)
	return queryAll(ctx, r.q, "list book borrowings", query, err, scanBorrowingDetail)
}

func (r *pgBorrowingRepository) FindAll(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
	query, err := selectBorrowingDetailsQuery(nil, page)
	return queryAll(ctx, r.q, "list borrowings", query, err, scanBorrowingDetail)
}
