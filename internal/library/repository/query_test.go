package repository

import (
	"testing"
	"time"

	"library/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBookByIDQuery_LockModes(t *testing.T) {
	plain, err := selectBookByIDQuery(7, LockNone)
	require.NoError(t, err)
	assert.NotContains(t, plain.sql, "FOR UPDATE")
	assert.Contains(t, plain.sql, `FROM "books"`)
	assert.Equal(t, []any{int64(7)}, plain.args)

	locked, err := selectBookByIDQuery(7, LockExclusive)
	require.NoError(t, err)
	assert.Contains(t, locked.sql, "FOR UPDATE")
	assert.NotContains(t, locked.sql, "NOWAIT")
}

func TestSelectBooksQuery_FiltersAreEscaped(t *testing.T) {
	q, err := selectBooksQuery(model.BookFilter{Title: "50%_off", Author: "tolkien"}, model.Page{Limit: 5, Offset: 10})
	require.NoError(t, err)

	assert.Contains(t, q.sql, `"title" ILIKE`)
	assert.Contains(t, q.sql, `"author" ILIKE`)
	assert.Contains(t, q.sql, "LIMIT")
	assert.Contains(t, q.sql, "OFFSET")
	assert.Contains(t, q.args, `%50\%\_off%`)
	assert.Contains(t, q.args, `%tolkien%`)
}

func TestSelectBooksQuery_NoFilter(t *testing.T) {
	q, err := selectBooksQuery(model.BookFilter{}, model.Page{})
	require.NoError(t, err)
	assert.NotContains(t, q.sql, "ILIKE")
	assert.Contains(t, q.sql, `ORDER BY "id" ASC`)
}

func TestSelectMemberByEmailQuery_CaseInsensitive(t *testing.T) {
	q, err := selectMemberByEmailQuery("Ann@Example.COM")
	require.NoError(t, err)
	assert.Contains(t, q.sql, `LOWER("email")`)
	assert.Equal(t, []any{"ann@example.com"}, q.args)
}

func TestSelectActiveBorrowingQuery(t *testing.T) {
	memberID := int64(3)
	q, err := selectActiveBorrowingQuery(9, &memberID, LockExclusive)
	require.NoError(t, err)

	assert.Contains(t, q.sql, `FROM "borrowing_records"`)
	assert.Contains(t, q.sql, `"returned_date" IS NULL`)
	assert.Contains(t, q.sql, `"member_id"`)
	assert.Contains(t, q.sql, "FOR UPDATE")
	assert.ElementsMatch(t, []any{int64(9), int64(3)}, q.args)
}

func TestMarkReturnedQuery_OnlyActive(t *testing.T) {
	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	q, err := markReturnedQuery(4, at)
	require.NoError(t, err)
	assert.Contains(t, q.sql, `UPDATE "borrowing_records"`)
	assert.Contains(t, q.sql, `"returned_date" IS NULL`)
}

func TestSelectBorrowingDetailsQuery_OrderAndJoins(t *testing.T) {
	q, err := selectBorrowingDetailsQuery(activeBorrowingsFilter(), model.Page{Limit: 20})
	require.NoError(t, err)

	assert.Contains(t, q.sql, `INNER JOIN "books" AS "b"`)
	assert.Contains(t, q.sql, `INNER JOIN "members" AS "m"`)
	assert.Contains(t, q.sql, `ORDER BY "br"."borrowed_date" DESC, "br"."id" DESC`)
	assert.Contains(t, q.sql, `"br"."returned_date" IS NULL`)
}

func TestInsertBookQuery_ReturnsID(t *testing.T) {
	q, err := insertBookQuery(&model.Book{Title: "Dune", Author: "Herbert", ISBN: "1", IsAvailable: true})
	require.NoError(t, err)
	assert.Contains(t, q.sql, `INSERT INTO "books"`)
	assert.Contains(t, q.sql, `RETURNING "id"`)
}
