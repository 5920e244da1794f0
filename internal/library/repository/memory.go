package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	libraryerrors "library/internal/library/errors"
	"library/pkg/model"
)

// memoryState is one snapshot of the store. Transactions work on a clone and
// swap it in on commit.
type memoryState struct {
	books      map[int64]model.Book
	members    map[int64]model.Member
	borrowings map[int64]model.Borrowing

	nextBookID      int64
	nextMemberID    int64
	nextBorrowingID int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		books:      make(map[int64]model.Book),
		members:    make(map[int64]model.Member),
		borrowings: make(map[int64]model.Borrowing),
	}
}

func (s *memoryState) clone() *memoryState {
	c := *s
	c.books = make(map[int64]model.Book, len(s.books))
	for k, v := range s.books {
		c.books[k] = v
	}
	c.members = make(map[int64]model.Member, len(s.members))
	for k, v := range s.members {
		c.members[k] = v
	}
	c.borrowings = make(map[int64]model.Borrowing, len(s.borrowings))
	for k, v := range s.borrowings {
		c.borrowings[k] = v
	}
	return &c
}

type memoryStore struct {
	// txMu serializes transactions, which makes every exclusive read a
	// lock held until commit.
	txMu sync.Mutex

	stateMu sync.RWMutex
	state   *memoryState
}

// NewMemoryStore returns an in-process Store. It enforces the same uniqueness
// rules as the Postgres schema and is used by tests and local runs.
func NewMemoryStore() Store {
	return &memoryStore{state: newMemoryState()}
}

func (s *memoryStore) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.stateMu.RLock()
	working := s.state.clone()
	s.stateMu.RUnlock()

	if err := fn(ctx, &memoryQueries{state: working, inTx: true}); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.state = working
	s.stateMu.Unlock()
	return nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Direct calls run as single-statement transactions.
func (s *memoryStore) autocommit() *memoryQueries {
	return &memoryQueries{store: s}
}

func (s *memoryStore) Books() BookRepository           { return &memoryBookRepository{s.autocommit()} }
func (s *memoryStore) Members() MemberRepository       { return &memoryMemberRepository{s.autocommit()} }
func (s *memoryStore) Borrowings() BorrowingRepository { return &memoryBorrowingRepository{s.autocommit()} }

type memoryQueries struct {
	state *memoryState
	inTx  bool
	store *memoryStore
}

func (q *memoryQueries) Books() BookRepository           { return &memoryBookRepository{q} }
func (q *memoryQueries) Members() MemberRepository       { return &memoryMemberRepository{q} }
func (q *memoryQueries) Borrowings() BorrowingRepository { return &memoryBorrowingRepository{q} }

func (q *memoryQueries) read(ctx context.Context, lock LockMode, fn func(*memoryState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if lock == LockExclusive && !q.inTx {
		return libraryerrors.ErrLockOutsideTx
	}
	if q.inTx {
		return fn(q.state)
	}
	q.store.stateMu.RLock()
	defer q.store.stateMu.RUnlock()
	return fn(q.store.state)
}

func (q *memoryQueries) write(ctx context.Context, fn func(*memoryState) error) error {
	if q.inTx {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(q.state)
	}
	return q.store.ExecuteTransaction(ctx, func(ctx context.Context, tx Queries) error {
		return fn(tx.(*memoryQueries).state)
	})
}

func paginate[T any](items []T, page model.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return []T{}
	}
	end := min(page.Offset+page.Limit, len(items))
	return items[page.Offset:end]
}

// ─── books ───

type memoryBookRepository struct{ q *memoryQueries }

func (r *memoryBookRepository) FindByID(ctx context.Context, id int64, lock LockMode) (*model.Book, error) {
	var out *model.Book
	err := r.q.read(ctx, lock, func(s *memoryState) error {
		b, ok := s.books[id]
		if !ok {
			return libraryerrors.ErrNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *memoryBookRepository) FindByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	var out *model.Book
	err := r.q.read(ctx, LockNone, func(s *memoryState) error {
		for _, b := range s.books {
			if b.ISBN == isbn {
				out = &b
				return nil
			}
		}
		return libraryerrors.ErrNotFound
	})
	return out, err
}

func (r *memoryBookRepository) FindAll(ctx context.Context, filter model.BookFilter, page model.Page) ([]*model.Book, error) {
	title := strings.ToLower(filter.Title)
	author := strings.ToLower(filter.Author)

	var out []*model.Book
	err := r.q.read(ctx, LockNone, func(s *memoryState) error {
		matched := make([]*model.Book, 0, len(s.books))
		for _, b := range s.books {
			if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
				continue
			}
			if author != "" && !strings.Contains(strings.ToLower(b.Author), author) {
				continue
			}
			matched = append(matched, &b)
		}
		slices.SortFunc(matched, func(a, b *model.Book) int { return cmp.Compare(a.ID, b.ID) })
		out = paginate(matched, page)
		return nil
	})
	return out, err
}

func (r *memoryBookRepository) Create(ctx context.Context, book *model.Book) error {
	return r.q.write(ctx, func(s *memoryState) error {
		for _, b := range s.books {
			if b.ISBN == book.ISBN {
				return libraryerrors.ErrDuplicate
			}
		}
		s.nextBookID++
		book.ID = s.nextBookID
		s.books[book.ID] = *book
		return nil
	})
}

func (r *memoryBookRepository) Update(ctx context.Context, book *model.Book) error {
	return r.q.write(ctx, func(s *memoryState) error {
		current, ok := s.books[book.ID]
		if !ok {
			return libraryerrors.ErrNotFound
		}
		current.Title = book.Title
		current.Author = book.Author
		current.Description = book.Description
		current.UpdatedAt = book.UpdatedAt
		s.books[book.ID] = current
		return nil
	})
}

func (r *memoryBookRepository) SetAvailability(ctx context.Context, id int64, available bool, at time.Time) error {
	return r.q.write(ctx, func(s *memoryState) error {
		b, ok := s.books[id]
		if !ok {
			return libraryerrors.ErrNotFound
		}
		b.IsAvailable = available
		b.UpdatedAt = at
		s.books[id] = b
		return nil
	})
}

func (r *memoryBookRepository) Delete(ctx context.Context, id int64) error {
	return r.q.write(ctx, func(s *memoryState) error {
		if _, ok := s.books[id]; !ok {
			return libraryerrors.ErrNotFound
		}
		delete(s.books, id)
		return nil
	})
}

// ─── members ───

type memoryMemberRepository struct{ q *memoryQueries }

func (r *memoryMemberRepository) FindByID(ctx context.Context, id int64, lock LockMode) (*model.Member, error) {
	var out *model.Member
	err := r.q.read(ctx, lock, func(s *memoryState) error {
		m, ok := s.members[id]
		if !ok {
			return libraryerrors.ErrNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *memoryMemberRepository) findBy(ctx context.Context, match func(model.Member) bool) (*model.Member, error) {
	var out *model.Member
	err := r.q.read(ctx, LockNone, func(s *memoryState) error {
		for _, m := range s.members {
			if match(m) {
				out = &m
				return nil
			}
		}
		return libraryerrors.ErrNotFound
	})
	return out, err
}

func (r *memoryMemberRepository) FindByEmail(ctx context.Context, email string) (*model.Member, error) {
	return r.findBy(ctx, func(m model.Member) bool { return strings.EqualFold(m.Email, email) })
}

func (r *memoryMemberRepository) FindByPhone(ctx context.Context, phone string) (*model.Member, error) {
	return r.findBy(ctx, func(m model.Member) bool { return m.Phone != nil && strings.EqualFold(*m.Phone, phone) })
}

func (r *memoryMemberRepository) FindAll(ctx context.Context, page model.Page) ([]*model.Member, error) {
	var out []*model.Member
	err := r.q.read(ctx, LockNone, func(s *memoryState) error {
		all := make([]*model.Member, 0, len(s.members))
		for _, m := range s.members {
			all = append(all, &m)
		}
		slices.SortFunc(all, func(a, b *model.Member) int { return cmp.Compare(a.ID, b.ID) })
		out = paginate(all, page)
		return nil
	})
	return out, err
}

// memberConflict mirrors the unique indexes on lower(email) and lower(phone).
func memberConflict(s *memoryState, m *model.Member) error {
	for id, other := range s.members {
		if id == m.ID {
			continue
		}
		if strings.EqualFold(other.Email, m.Email) {
			return libraryerrors.ErrDuplicate
		}
		if m.Phone != nil && other.Phone != nil && strings.EqualFold(*other.Phone, *m.Phone) {
			return libraryerrors.ErrDuplicatePhone
		}
	}
	return nil
}

func (r *memoryMemberRepository) Create(ctx context.Context, member *model.Member) error {
	return r.q.write(ctx, func(s *memoryState) error {
		if err := memberConflict(s, member); err != nil {
			return err
		}
		s.nextMemberID++
		member.ID = s.nextMemberID
		s.members[member.ID] = *member
		return nil
	})
}

func (r *memoryMemberRepository) Update(ctx context.Context, member *model.Member) error {
	return r.q.write(ctx, func(s *memoryState) error {
		current, ok := s.members[member.ID]
		if !ok {
			return libraryerrors.ErrNotFound
		}
		if err := memberConflict(s, member); err != nil {
			return err
		}
		current.Name = member.Name
		current.Email = member.Email
		current.Phone = member.Phone
		current.UpdatedAt = member.UpdatedAt
		s.members[member.ID] = current
		return nil
	})
}

func (r *memoryMemberRepository) Delete(ctx context.Context, id int64) error {
	return r.q.write(ctx, func(s *memoryState) error {
		if _, ok := s.members[id]; !ok {
			return libraryerrors.ErrNotFound
		}
		delete(s.members, id)
		return nil
	})
}

// ─── borrowings ───

type memoryBorrowingRepository struct{ q *memoryQueries }

func (r *memoryBorrowingRepository) findActive(ctx context.Context, lock LockMode, match func(model.Borrowing) bool) (*model.Borrowing, error) {
	var out *model.Borrowing
	err := r.q.read(ctx, lock, func(s *memoryState) error {
		for _, b := range s.borrowings {
			if b.IsActive() && match(b) {
				out = &b
				return nil
			}
		}
		return libraryerrors.ErrNotFound
	})
	return out, err
}

func (r *memoryBorrowingRepository) FindActiveByBook(ctx context.Context, bookID int64, lock LockMode) (*model.Borrowing, error) {
	return r.findActive(ctx, lock, func(b model.Borrowing) bool { return b.BookID == bookID })
}

func (r *memoryBorrowingRepository) FindActiveByBookAndMember(ctx context.Context, bookID, memberID int64, lock LockMode) (*model.Borrowing, error) {
	return r.findActive(ctx, lock, func(b model.Borrowing) bool { return b.BookID == bookID && b.MemberID == memberID })
}

func (r *memoryBorrowingRepository) exists(ctx context.Context, match func(model.Borrowing) bool) (bool, error) {
	found := false
	err := r.q.read(ctx, LockNone, func(s *memoryState) error {
		for _, b := range s.borrowings {
			if match(b) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *memoryBorrowingRepository) ExistsForBook(ctx context.Context, bookID int64) (bool, error) {
	return r.exists(ctx, func(b model.Borrowing) bool { return b.BookID == bookID })
}

func (r *memoryBorrowingRepository) ExistsForMember(ctx context.Context, memberID int64) (bool, error) {
	return r.exists(ctx, func(b model.Borrowing) bool { return b.MemberID == memberID })
}

func (r *memoryBorrowingRepository) Create(ctx context.Context, borrowing *model.Borrowing) error {
	return r.q.write(ctx, func(s *memoryState) error {
		if _, ok := s.books[borrowing.BookID]; !ok {
			return libraryerrors.ErrNotFound
		}
		if _, ok := s.members[borrowing.MemberID]; !ok {
			return libraryerrors.ErrNotFound
		}
		for _, b := range s.borrowings {
			if b.IsActive() && b.BookID == borrowing.BookID {
				return libraryerrors.ErrDuplicate
			}
		}
		s.nextBorrowingID++
		borrowing.ID = s.nextBorrowingID
		s.borrowings[borrowing.ID] = *borrowing
		return nil
	})
}

func (r *memoryBorrowingRepository) MarkReturned(ctx context.Context, id int64, at time.Time) error {
	return r.q.write(ctx, func(s *memoryState) error {
		b, ok := s.borrowings[id]
		if !ok || !b.IsActive() {
			return libraryerrors.ErrNotFound
		}
		b.ReturnedAt = &at
		s.borrowings[id] = b
		return nil
	})
}

func (r *memoryBorrowingRepository) list(ctx context.Context, page model.Page, match func(model.Borrowing) bool) ([]*model.BorrowingDetail, error) {
	var out []*model.BorrowingDetail
	err := r.q.read(ctx, LockNone, func(s *memoryState) error {
		details := make([]*model.BorrowingDetail, 0)
		for _, b := range s.borrowings {
			if !match(b) {
				continue
			}
			details = append(details, &model.BorrowingDetail{
				Borrowing: b,
				Book:      s.books[b.BookID],
				Member:    s.members[b.MemberID],
			})
		}
		slices.SortFunc(details, func(a, b *model.BorrowingDetail) int {
			if c := b.BorrowedAt.Compare(a.BorrowedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
		out = paginate(details, page)
		return nil
	})
	return out, err
}

func (r *memoryBorrowingRepository) FindActive(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
	return r.list(ctx, page, model.Borrowing.IsActive)
}

func (r *memoryBorrowingRepository) FindByMember(ctx context.Context, memberID int64, page model.Page) ([]*model.BorrowingDetail, error) {
	return r.list(ctx, page, func(b model.Borrowing) bool { return b.MemberID == memberID })
}

func (r *memoryBorrowingRepository) FindByBook(ctx context.Context, bookID int64, page model.Page) ([]*model.BorrowingDetail, error) {
	return r.list(ctx, page, func(b model.Borrowing) bool { return b.BookID == bookID })
}

func (r *memoryBorrowingRepository) FindAll(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
	return r.list(ctx, page, func(model.Borrowing) bool { return true })
}
