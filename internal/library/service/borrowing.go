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
)

const (
	msgBookNotAvailable     = "Book not available"
	msgNoBorrowingForReturn = "No borrowing record found for provided book_id and member_id"
)

// BorrowBook locks the book row, then the member row. The book lock
// serializes concurrent borrows of the same book so at most one succeeds.
func (s *coordinator) BorrowBook(ctx context.Context, bookID, memberID int64) (*model.Borrowing, error) {
	if err := requirePositive("book_id", bookID); err != nil {
		return nil, err
	}
	if err := requirePositive("member_id", memberID); err != nil {
		return nil, err
	}

	var (
		book      *model.Book
		member    *model.Member
		borrowing *model.Borrowing
	)
	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		book, err = s.findBook(ctx, q, bookID, repository.LockExclusive)
		if err != nil {
			return err
		}
		if !book.IsAvailable {
			return apperrors.ActionForbidden(msgBookNotAvailable)
		}

		member, err = s.findMember(ctx, q, memberID, repository.LockExclusive)
		if err != nil {
			return err
		}

		now := s.timestamp()
		borrowing = &model.Borrowing{
			BookID:     book.ID,
			MemberID:   member.ID,
			BorrowedAt: now,
		}
		if err := q.Borrowings().Create(ctx, borrowing); err != nil {
			if errors.Is(err, libraryerrors.ErrDuplicate) {
				return apperrors.ActionForbidden(msgBookNotAvailable)
			}
			return s.storeError(err, "Failed to create borrowing")
		}
		if err := q.Books().SetAvailability(ctx, book.ID, false, now); err != nil {
			return s.storeError(err, "Failed to update book availability")
		}
		book.IsAvailable = false
		book.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.storeError(err, "Failed to borrow book")
	}

	s.invalidateBorrowing(ctx, book.ID)
	s.events.Publish(ctx, events.RoutingKeyBookBorrowed, events.NewBookBorrowed(book, member, borrowing))

	s.cfg.Log.Info("Book borrowed",
		"borrowing_id", borrowing.ID,
		"book_id", book.ID,
		"member_id", member.ID,
		"due_date", borrowing.DueAt(),
	)
	return borrowing, nil
}

// ReturnBook closes the active borrowing of bookID held by memberID. A book
// never borrowed, borrowed by someone else or already returned all give the
// same NotFound.
func (s *coordinator) ReturnBook(ctx context.Context, bookID, memberID int64) (*model.Borrowing, error) {
	if err := requirePositive("book_id", bookID); err != nil {
		return nil, err
	}
	if err := requirePositive("member_id", memberID); err != nil {
		return nil, err
	}

	var (
		book      *model.Book
		member    *model.Member
		borrowing *model.Borrowing
	)
	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		book, err = q.Books().FindByID(ctx, bookID, repository.LockExclusive)
		if err != nil {
			if errors.Is(err, libraryerrors.ErrNotFound) {
				return apperrors.NotFound(msgNoBorrowingForReturn)
			}
			return s.storeError(err, "Failed to retrieve book")
		}

		borrowing, err = q.Borrowings().FindActiveByBookAndMember(ctx, bookID, memberID, repository.LockExclusive)
		if err != nil {
			if errors.Is(err, libraryerrors.ErrNotFound) {
				return apperrors.NotFound(msgNoBorrowingForReturn)
			}
			return s.storeError(err, "Failed to retrieve borrowing")
		}

		member, err = s.findMember(ctx, q, memberID, repository.LockExclusive)
		if err != nil {
			return err
		}

		now := s.timestamp()
		if err := q.Borrowings().MarkReturned(ctx, borrowing.ID, now); err != nil {
			if errors.Is(err, libraryerrors.ErrNotFound) {
				return apperrors.NotFound(msgNoBorrowingForReturn)
			}
			return s.storeError(err, "Failed to mark borrowing returned")
		}
		if err := q.Books().SetAvailability(ctx, book.ID, true, now); err != nil {
			return s.storeError(err, "Failed to update book availability")
		}
		borrowing.ReturnedAt = &now
		book.IsAvailable = true
		book.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.storeError(err, "Failed to return book")
	}

	s.invalidateBorrowing(ctx, book.ID)
	s.events.Publish(ctx, events.RoutingKeyBookReturned, events.NewBookReturned(book, member, borrowing))

	s.cfg.Log.Info("Book returned",
		"borrowing_id", borrowing.ID,
		"book_id", book.ID,
		"member_id", member.ID,
	)
	return borrowing, nil
}

func (s *coordinator) invalidateBorrowing(ctx context.Context, bookID int64) {
	s.cache.Delete(ctx, cache.BookKey(bookID))
	s.cache.InvalidatePrefix(ctx, cache.BookListPrefix, cache.BorrowingsPrefix)
}

func (s *coordinator) GetActiveBorrowings(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
	page = page.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.ActiveBorrowingsKey(page), s.cfg.CacheDefaultTTL,
		func(ctx context.Context) ([]*model.BorrowingDetail, error) {
			list, err := s.store.Borrowings().FindActive(ctx, page)
			if err != nil {
				return nil, s.storeError(err, "Failed to retrieve active borrowings")
			}
			return list, nil
		})
}

func (s *coordinator) GetBorrowingsByMember(ctx context.Context, memberID int64, page model.Page) ([]*model.BorrowingDetail, error) {
	if err := requirePositive("member_id", memberID); err != nil {
		return nil, err
	}
	page = page.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.MemberBorrowingsKey(memberID, page), s.cfg.CacheDefaultTTL,
		func(ctx context.Context) ([]*model.BorrowingDetail, error) {
			if _, err := s.findMember(ctx, s.store, memberID, repository.LockNone); err != nil {
				return nil, err
			}
			list, err := s.store.Borrowings().FindByMember(ctx, memberID, page)
			if err != nil {
				return nil, s.storeError(err, "Failed to retrieve member borrowings")
			}
			return list, nil
		})
}

func (s *coordinator) GetBorrowingsByBook(ctx context.Context, bookID int64, page model.Page) ([]*model.BorrowingDetail, error) {
	if err := requirePositive("book_id", bookID); err != nil {
		return nil, err
	}
	page = page.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.BookBorrowingsKey(bookID, page), s.cfg.CacheDefaultTTL,
		func(ctx context.Context) ([]*model.BorrowingDetail, error) {
			if _, err := s.findBook(ctx, s.store, bookID, repository.LockNone); err != nil {
				return nil, err
			}
			list, err := s.store.Borrowings().FindByBook(ctx, bookID, page)
			if err != nil {
				return nil, s.storeError(err, "Failed to retrieve book borrowings")
			}
			return list, nil
		})
}

func (s *coordinator) GetBorrowingHistory(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
	page = page.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.BorrowingHistoryKey(page), s.cfg.CacheDefaultTTL,
		func(ctx context.Context) ([]*model.BorrowingDetail, error) {
			list, err := s.store.Borrowings().FindAll(ctx, page)
			if err != nil {
				return nil, s.storeError(err, "Failed to retrieve borrowing history")
			}
			return list, nil
		})
}
