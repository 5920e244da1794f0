package service

import (
	"context"
	"errors"

	libraryerrors "library/internal/library/errors"
	"library/internal/library/repository"
	"library/pkg/cache"
	apperrors "library/pkg/errors"
	"library/pkg/events"
	"library/pkg/model"
	"library/pkg/sanitizer"
)

const (
	msgDuplicateISBN      = "Book with this ISBN already exists"
	msgUpdateBorrowedBook = "Cannot update a borrowed book"
	msgDeleteBorrowedBook = "Cannot delete book that is currently borrowed or marked as unavailable."
	msgDeleteBookHistory  = "Cannot delete book with borrowing history."
)

func (s *coordinator) GetBooks(ctx context.Context, filter model.BookFilter, page model.Page) ([]*model.Book, error) {
	filter.Title = sanitizer.SanitizeText(filter.Title)
	filter.Author = sanitizer.SanitizeText(filter.Author)
	page = page.Normalize()

	return cache.ReadThrough(ctx, s.cache, cache.BookListKey(filter, page), s.cfg.CacheBookListTTL,
		func(ctx context.Context) ([]*model.Book, error) {
			books, err := s.store.Books().FindAll(ctx, filter, page)
			if err != nil {
				return nil, s.storeError(err, "Failed to retrieve books")
			}
			return books, nil
		})
}

func (s *coordinator) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	if err := requirePositive("book_id", id); err != nil {
		return nil, err
	}
	return cache.ReadThrough(ctx, s.cache, cache.BookKey(id), s.cfg.CacheDefaultTTL,
		func(ctx context.Context) (*model.Book, error) {
			return s.findBook(ctx, s.store, id, repository.LockNone)
		})
}

func (s *coordinator) CreateBook(ctx context.Context, book *model.Book) (*model.Book, error) {
	s.sanitizeBook(book)
	if err := s.validator.ValidateBook(book); err != nil {
		s.cfg.Log.Warn("Book validation failed", "error", err)
		return nil, s.validationError("Book validation failed", err)
	}

	now := s.timestamp()
	book.ID = 0
	book.IsAvailable = true
	book.CreatedAt = now
	book.UpdatedAt = now

	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		_, err := q.Books().FindByISBN(ctx, book.ISBN)
		switch {
		case err == nil:
			return apperrors.AlreadyExists(msgDuplicateISBN)
		case !errors.Is(err, libraryerrors.ErrNotFound):
			return s.storeError(err, "Failed to check ISBN")
		}

		if err := q.Books().Create(ctx, book); err != nil {
			if errors.Is(err, libraryerrors.ErrDuplicate) {
				return apperrors.AlreadyExists(msgDuplicateISBN)
			}
			return s.storeError(err, "Failed to create book")
		}
		return nil
	})
	if err != nil {
		return nil, s.storeError(err, "Failed to create book")
	}

	s.cache.InvalidatePrefix(ctx, cache.BookListPrefix)
	s.events.Publish(ctx, events.RoutingKeyBookCreated, events.NewBookCreated(book))

	s.cfg.Log.Info("Book created successfully", "id", book.ID, "isbn", book.ISBN)
	return book, nil
}

// UpdateBook applies only the fields present in patch. A book on loan is
// frozen until it is returned.
func (s *coordinator) UpdateBook(ctx context.Context, id int64, patch model.BookPatch) (*model.Book, error) {
	if err := requirePositive("book_id", id); err != nil {
		return nil, err
	}

	var book *model.Book
	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		book, err = s.findBook(ctx, q, id, repository.LockExclusive)
		if err != nil {
			return err
		}
		if err := s.ensureNotBorrowed(ctx, q, id, msgUpdateBorrowedBook); err != nil {
			return err
		}

		patch.ApplyTo(book, s.timestamp())
		s.sanitizeBook(book)
		if err := s.validator.ValidateBook(book); err != nil {
			s.cfg.Log.Warn("Book update validation failed", "id", id, "error", err)
			return s.validationError("Book validation failed", err)
		}

		if err := q.Books().Update(ctx, book); err != nil {
			return s.storeError(err, "Failed to update book")
		}
		return nil
	})
	if err != nil {
		return nil, s.storeError(err, "Failed to update book")
	}

	s.cache.Delete(ctx, cache.BookKey(id))
	s.cache.InvalidatePrefix(ctx, cache.BookListPrefix, cache.BorrowingsPrefix)

	s.cfg.Log.Info("Book updated successfully", "id", id)
	return book, nil
}

func (s *coordinator) DeleteBook(ctx context.Context, id int64) error {
	if err := requirePositive("book_id", id); err != nil {
		return err
	}

	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		book, err := s.findBook(ctx, q, id, repository.LockExclusive)
		if err != nil {
			return err
		}
		if !book.IsAvailable {
			return apperrors.ActionForbidden(msgDeleteBorrowedBook)
		}
		if err := s.ensureNotBorrowed(ctx, q, id, msgDeleteBorrowedBook); err != nil {
			return err
		}

		hasHistory, err := q.Borrowings().ExistsForBook(ctx, id)
		if err != nil {
			return s.storeError(err, "Failed to check borrowing history")
		}
		if hasHistory {
			return apperrors.ActionForbidden(msgDeleteBookHistory)
		}

		if err := q.Books().Delete(ctx, id); err != nil {
			return s.storeError(err, "Failed to delete book")
		}
		return nil
	})
	if err != nil {
		return s.storeError(err, "Failed to delete book")
	}

	s.cache.Delete(ctx, cache.BookKey(id))
	s.cache.InvalidatePrefix(ctx, cache.BookListPrefix)

	s.cfg.Log.Info("Book deleted successfully", "id", id)
	return nil
}

func (s *coordinator) ensureNotBorrowed(ctx context.Context, q repository.Queries, bookID int64, message string) error {
	_, err := q.Borrowings().FindActiveByBook(ctx, bookID, repository.LockExclusive)
	switch {
	case err == nil:
		return apperrors.ActionForbidden(message)
	case errors.Is(err, libraryerrors.ErrNotFound):
		return nil
	default:
		return s.storeError(err, "Failed to check active borrowing")
	}
}

func (s *coordinator) sanitizeBook(b *model.Book) {
	b.Title = sanitizer.SanitizeText(b.Title)
	b.Author = sanitizer.SanitizeText(b.Author)
	b.ISBN = sanitizer.SanitizeIdentifier(b.ISBN)
	b.Description = sanitizer.SanitizeOptional(b.Description, sanitizer.SanitizeText)
}
