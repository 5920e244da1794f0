package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	libraryerrors "library/internal/library/errors"
	"library/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store Store) (*model.Book, *model.Member) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	book := &model.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593", IsAvailable: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Books().Create(ctx, book))

	member := &model.Member{Email: "ann@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Members().Create(ctx, member))
	return book, member
}

func TestMemoryStore_CreateAssignsIDs(t *testing.T) {
	store := NewMemoryStore()
	book, member := seed(t, store)

	assert.Equal(t, int64(1), book.ID)
	assert.Equal(t, int64(1), member.ID)

	got, err := store.Books().FindByID(context.Background(), book.ID, LockNone)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
}

func TestMemoryStore_DuplicateISBN(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store)

	err := store.Books().Create(context.Background(), &model.Book{Title: "Other", Author: "X", ISBN: "978-0441013593"})
	assert.ErrorIs(t, err, libraryerrors.ErrDuplicate)
}

func TestMemoryStore_MemberEmailIsCaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	_, member := seed(t, store)
	ctx := context.Background()

	err := store.Members().Create(ctx, &model.Member{Email: "ANN@example.com"})
	assert.ErrorIs(t, err, libraryerrors.ErrDuplicate)

	found, err := store.Members().FindByEmail(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, member.ID, found.ID)

	// updating a member with its own email is not a conflict
	member.Email = "ann@example.com"
	assert.NoError(t, store.Members().Update(ctx, member))
}

func TestMemoryStore_ExclusiveLockRequiresTransaction(t *testing.T) {
	store := NewMemoryStore()
	book, _ := seed(t, store)

	_, err := store.Books().FindByID(context.Background(), book.ID, LockExclusive)
	assert.ErrorIs(t, err, libraryerrors.ErrLockOutsideTx)

	err = store.ExecuteTransaction(context.Background(), func(ctx context.Context, q Queries) error {
		_, err := q.Books().FindByID(ctx, book.ID, LockExclusive)
		return err
	})
	assert.NoError(t, err)
}

func TestMemoryStore_RollbackDiscardsWrites(t *testing.T) {
	store := NewMemoryStore()
	book, member := seed(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.ExecuteTransaction(ctx, func(ctx context.Context, q Queries) error {
		require.NoError(t, q.Borrowings().Create(ctx, &model.Borrowing{BookID: book.ID, MemberID: member.ID, BorrowedAt: time.Now()}))
		require.NoError(t, q.Books().SetAvailability(ctx, book.ID, false, time.Now()))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Books().FindByID(ctx, book.ID, LockNone)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)

	_, err = store.Borrowings().FindActiveByBook(ctx, book.ID, LockNone)
	assert.ErrorIs(t, err, libraryerrors.ErrNotFound)
}

func TestMemoryStore_OneActiveBorrowingPerBook(t *testing.T) {
	store := NewMemoryStore()
	book, member := seed(t, store)
	ctx := context.Background()

	first := &model.Borrowing{BookID: book.ID, MemberID: member.ID, BorrowedAt: time.Now()}
	require.NoError(t, store.Borrowings().Create(ctx, first))

	err := store.Borrowings().Create(ctx, &model.Borrowing{BookID: book.ID, MemberID: member.ID, BorrowedAt: time.Now()})
	assert.ErrorIs(t, err, libraryerrors.ErrDuplicate)

	require.NoError(t, store.Borrowings().MarkReturned(ctx, first.ID, time.Now()))
	assert.ErrorIs(t, store.Borrowings().MarkReturned(ctx, first.ID, time.Now()), libraryerrors.ErrNotFound)

	assert.NoError(t, store.Borrowings().Create(ctx, &model.Borrowing{BookID: book.ID, MemberID: member.ID, BorrowedAt: time.Now()}))
}

func TestMemoryStore_BorrowingListings(t *testing.T) {
	store := NewMemoryStore()
	book, member := seed(t, store)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	old := &model.Borrowing{BookID: book.ID, MemberID: member.ID, BorrowedAt: base}
	require.NoError(t, store.Borrowings().Create(ctx, old))
	require.NoError(t, store.Borrowings().MarkReturned(ctx, old.ID, base.Add(time.Hour)))

	recent := &model.Borrowing{BookID: book.ID, MemberID: member.ID, BorrowedAt: base.Add(48 * time.Hour)}
	require.NoError(t, store.Borrowings().Create(ctx, recent))

	all, err := store.Borrowings().FindAll(ctx, model.Page{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, recent.ID, all[0].ID)
	assert.Equal(t, "Dune", all[0].Book.Title)
	assert.Equal(t, "ann@example.com", all[0].Member.Email)

	active, err := store.Borrowings().FindActive(ctx, model.Page{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, recent.ID, active[0].ID)

	paged, err := store.Borrowings().FindByMember(ctx, member.ID, model.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, old.ID, paged[0].ID)

	exists, err := store.Borrowings().ExistsForBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Borrowings().ExistsForMember(ctx, member.ID+1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_BookFilter(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store)
	ctx := context.Background()
	require.NoError(t, store.Books().Create(ctx, &model.Book{Title: "Emma", Author: "Jane Austen", ISBN: "2"}))

	books, err := store.Books().FindAll(ctx, model.BookFilter{Author: "austen"}, model.Page{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Title)

	books, err = store.Books().FindAll(ctx, model.BookFilter{}, model.Page{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestMemoryStore_PhoneConflictIsReportedAsPhone(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	phone := "0123456789"
	require.NoError(t, store.Members().Create(ctx, &model.Member{Email: "ann@example.com", Phone: &phone}))

	err := store.Members().Create(ctx, &model.Member{Email: "bob@example.com", Phone: &phone})
	assert.ErrorIs(t, err, libraryerrors.ErrDuplicatePhone)
	assert.ErrorIs(t, err, libraryerrors.ErrDuplicate)

	err = store.Members().Create(ctx, &model.Member{Email: "ANN@example.com"})
	assert.ErrorIs(t, err, libraryerrors.ErrDuplicate)
	assert.NotErrorIs(t, err, libraryerrors.ErrDuplicatePhone)
}
