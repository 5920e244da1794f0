package service

import (
	"context"
	"errors"
	"time"

	libraryerrors "library/internal/library/errors"
	"library/internal/library/repository"
	"library/internal/library/validator"
	"library/pkg/cache"
	"library/pkg/config"
	"library/pkg/db/postgres"
	apperrors "library/pkg/errors"
	"library/pkg/events"
	"library/pkg/model"
)

// Coordinator is the library use-case layer. Mutations run in one store
// transaction. Cache invalidation and event publishing happen only after the
// commit and never fail the call.
type Coordinator interface {
	BorrowBook(ctx context.Context, bookID, memberID int64) (*model.Borrowing, error)
	ReturnBook(ctx context.Context, bookID, memberID int64) (*model.Borrowing, error)

	GetBooks(ctx context.Context, filter model.BookFilter, page model.Page) ([]*model.Book, error)
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	CreateBook(ctx context.Context, book *model.Book) (*model.Book, error)
	UpdateBook(ctx context.Context, id int64, patch model.BookPatch) (*model.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	GetMembers(ctx context.Context, page model.Page) ([]*model.Member, error)
	GetMember(ctx context.Context, id int64) (*model.Member, error)
	CreateMember(ctx context.Context, member *model.Member) (*model.Member, error)
	UpdateMember(ctx context.Context, id int64, patch model.MemberPatch) (*model.Member, error)
	DeleteMember(ctx context.Context, id int64) error

	GetActiveBorrowings(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error)
	GetBorrowingsByMember(ctx context.Context, memberID int64, page model.Page) ([]*model.BorrowingDetail, error)
	GetBorrowingsByBook(ctx context.Context, bookID int64, page model.Page) ([]*model.BorrowingDetail, error)
	GetBorrowingHistory(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error)

	Ready(ctx context.Context) error
}

type Option func(*coordinator)

// WithClock replaces time.Now for borrowed, returned and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *coordinator) {
		c.now = now
	}
}

type coordinator struct {
	store     repository.Store
	cache     *cache.SideCache
	events    *events.BestEffort
	validator *validator.EntityValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewCoordinator(
	store repository.Store,
	sideCache *cache.SideCache,
	publisher *events.BestEffort,
	entityValidator *validator.EntityValidator,
	cfg *config.Config,
	opts ...Option,
) Coordinator {
	c := &coordinator{
		store:     store,
		cache:     sideCache,
		events:    publisher,
		validator: entityValidator,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (s *coordinator) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return apperrors.Busy("Store is not reachable", err)
	}
	return nil
}

// timestamp is truncated to the precision postgres keeps so values read
// back compare equal to the ones written.
func (s *coordinator) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func requirePositive(name string, id int64) error {
	if id <= 0 {
		return apperrors.InvalidArgument(name+" must be a positive integer", map[string]any{name: id})
	}
	return nil
}

// storeError turns a store failure that no call site handled into an
// AppError. Lock and timeout failures are retryable.
func (s *coordinator) storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if postgres.IsBusy(err) {
		s.cfg.Log.Warn("Store busy", "operation", message, "error", err)
		return apperrors.Busy("The library is busy, please retry", err)
	}
	if errors.Is(err, libraryerrors.ErrNotFound) {
		return apperrors.NotFound(message)
	}
	s.cfg.Log.Error(message, "error", err)
	return apperrors.Internal(message, err)
}

func (s *coordinator) findBook(ctx context.Context, q repository.Queries, id int64, lock repository.LockMode) (*model.Book, error) {
	book, err := q.Books().FindByID(ctx, id, lock)
	if err != nil {
		if errors.Is(err, libraryerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Book", id)
		}
		return nil, s.storeError(err, "Failed to retrieve book")
	}
	return book, nil
}

func (s *coordinator) findMember(ctx context.Context, q repository.Queries, id int64, lock repository.LockMode) (*model.Member, error) {
	member, err := q.Members().FindByID(ctx, id, lock)
	if err != nil {
		if errors.Is(err, libraryerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Member", id)
		}
		return nil, s.storeError(err, "Failed to retrieve member")
	}
	return member, nil
}

func (s *coordinator) validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.InvalidArgument(message, verrs.Details())
	}
	return apperrors.InvalidArgument(message, map[string]any{"error": err.Error()})
}
