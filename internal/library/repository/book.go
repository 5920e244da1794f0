package repository

import (
	"context"
	"time"

	"library/pkg/model"

	"github.com/jackc/pgx/v5"
)

type pgBookRepository struct {
	q *pgQueries
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgBookRepository) FindByID(ctx context.Context, id int64, lock LockMode) (*model.Book, error) {
	if err := r.q.checkLock(lock); err != nil {
		return nil, err
	}
	query, err := selectBookByIDQuery(id, lock)
	return queryOne(ctx, r.q, "find book", query, err, scanBook)
}

func (r *pgBookRepository) FindByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	query, err := selectBookByISBNQuery(isbn)
	return queryOne(ctx, r.q, "find book by isbn", query, err, scanBook)
}

func (r *pgBookRepository) FindAll(ctx context.Context, filter model.BookFilter, page model.Page) ([]*model.Book, error) {
	query, err := selectBooksQuery(filter, page)
	return queryAll(ctx, r.q, "list books", query, err, scanBook)
}

func (r *pgBookRepository) Create(ctx context.Context, book *model.Book) error {
	query, err := insertBookQuery(book)
	id, err := r.q.insert(ctx, "create book", query, err)
	if err != nil {
		return err
	}
	book.ID = id
	return nil
}

func (r *pgBookRepository) Update(ctx context.Context, book *model.Book) error {
	query, err := updateBookQuery(book)
	return r.q.exec(ctx, "update book", query, err)
}

func (r *pgBookRepository) SetAvailability(ctx context.Context, id int64, available bool, at time.Time) error {
	query, err := updateBookAvailabilityQuery(id, available, at)
	return r.q.exec(ctx, "update book availability", query, err)
}

func (r *pgBookRepository) Delete(ctx context.Context, id int64) error {
	query, err := deleteBookQuery(id)
	return r.q.exec(ctx, "delete book", query, err)
}
