package repository

import (
	"strings"
	"time"

	"library/pkg/db/postgres"
	"library/pkg/model"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	tableBooks      = "books"
	tableMembers    = "members"
	tableBorrowings = "borrowing_records"

	aliasBorrowing = "br"
	aliasBook      = "b"
	aliasMember    = "m"

	colID           = "id"
	colTitle        = "title"
	colAuthor       = "author"
	colISBN         = "isbn"
	colDescription  = "description"
	colIsAvailable  = "is_available"
	colName         = "name"
	colEmail        = "email"
	colPhone        = "phone"
	colBookID       = "book_id"
	colMemberID     = "member_id"
	colBorrowedDate = "borrowed_date"
	colReturnedDate = "returned_date"
	colCreatedAt    = "created_at"
	colUpdatedAt    = "updated_at"
)

var (
	bookColumns      = []string{colID, colTitle, colAuthor, colISBN, colDescription, colIsAvailable, colCreatedAt, colUpdatedAt}
	memberColumns    = []string{colID, colName, colEmail, colPhone, colCreatedAt, colUpdatedAt}
	borrowingColumns = []string{colID, colBookID, colMemberID, colBorrowedDate, colReturnedDate}

	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

type sqlQuery struct {
	sql  string
	args []any
}

func toQuery(sql string, args []any, err error) (sqlQuery, error) {
	return sqlQuery{sql: sql, args: args}, err
}

func columns(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = goqu.C(n)
	}
	return out
}

func qualified(alias string, names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = goqu.I(alias + "." + n)
	}
	return out
}

func withLock(ds *goqu.SelectDataset, lock LockMode) *goqu.SelectDataset {
	if lock == LockExclusive {
		return ds.ForUpdate(exp.Wait)
	}
	return ds
}

func withPage(ds *goqu.SelectDataset, page model.Page) *goqu.SelectDataset {
	page = page.Normalize()
	return ds.Limit(uint(page.Limit)).Offset(uint(page.Offset))
}

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// ─── books ───

func selectBookQuery(where exp.Expression, lock LockMode) (sqlQuery, error) {
	ds := postgres.Dialect.From(tableBooks).Select(columns(bookColumns)...).Where(where)
	return toQuery(withLock(ds, lock).Prepared(true).ToSQL())
}

func selectBookByIDQuery(id int64, lock LockMode) (sqlQuery, error) {
	return selectBookQuery(goqu.C(colID).Eq(id), lock)
}

func selectBookByISBNQuery(isbn string) (sqlQuery, error) {
	return selectBookQuery(goqu.C(colISBN).Eq(isbn), LockNone)
}

func selectBooksQuery(filter model.BookFilter, page model.Page) (sqlQuery, error) {
	ds := postgres.Dialect.From(tableBooks).Select(columns(bookColumns)...)
	if filter.Title != "" {
		ds = ds.Where(goqu.C(colTitle).ILike(containsPattern(filter.Title)))
	}
	if filter.Author != "" {
		ds = ds.Where(goqu.C(colAuthor).ILike(containsPattern(filter.Author)))
	}
	ds = withPage(ds.Order(goqu.C(colID).Asc()), page)
	return toQuery(ds.Prepared(true).ToSQL())
}

func insertBookQuery(b *model.Book) (sqlQuery, error) {
	ds := postgres.Dialect.Insert(tableBooks).Rows(goqu.Record{
		colTitle:       b.Title,
		colAuthor:      b.Author,
		colISBN:        b.ISBN,
		colDescription: b.Description,
		colIsAvailable: b.IsAvailable,
		colCreatedAt:   b.CreatedAt,
		colUpdatedAt:   b.UpdatedAt,
	}).Returning(goqu.C(colID))
	return toQuery(ds.Prepared(true).ToSQL())
}

func updateBookQuery(b *model.Book) (sqlQuery, error) {
	ds := postgres.Dialect.Update(tableBooks).Set(goqu.Record{
		colTitle:       b.Title,
		colAuthor:      b.Author,
		colDescription: b.Description,
		colUpdatedAt:   b.UpdatedAt,
	}).Where(goqu.C(colID).Eq(b.ID))
	return toQuery(ds.Prepared(true).ToSQL())
}

func updateBookAvailabilityQuery(id int64, available bool, at time.Time) (sqlQuery, error) {
	ds := postgres.Dialect.Update(tableBooks).Set(goqu.Record{
		colIsAvailable: available,
		colUpdatedAt:   at,
	}).Where(goqu.C(colID).Eq(id))
	return toQuery(ds.Prepared(true).ToSQL())
}

func deleteBookQuery(id int64) (sqlQuery, error) {
	return toQuery(postgres.Dialect.Delete(tableBooks).Where(goqu.C(colID).Eq(id)).Prepared(true).ToSQL())
}

// ─── members ───

func selectMemberQuery(where exp.Expression, lock LockMode) (sqlQuery, error) {
	ds := postgres.Dialect.From(tableMembers).Select(columns(memberColumns)...).Where(where)
	return toQuery(withLock(ds, lock).Prepared(true).ToSQL())
}

func selectMemberByIDQuery(id int64, lock LockMode) (sqlQuery, error) {
	return selectMemberQuery(goqu.C(colID).Eq(id), lock)
}

func selectMemberByEmailQuery(email string) (sqlQuery, error) {
	return selectMemberQuery(goqu.Func("LOWER", goqu.C(colEmail)).Eq(strings.ToLower(email)), LockNone)
}

func selectMemberByPhoneQuery(phone string) (sqlQuery, error) {
	return selectMemberQuery(goqu.Func("LOWER", goqu.C(colPhone)).Eq(strings.ToLower(phone)), LockNone)
}

func selectMembersQuery(page model.Page) (sqlQuery, error) {
	ds := postgres.Dialect.From(tableMembers).Select(columns(memberColumns)...).Order(goqu.C(colID).Asc())
	return toQuery(withPage(ds, page).Prepared(true).ToSQL())
}

func insertMemberQuery(m *model.Member) (sqlQuery, error) {
	ds := postgres.Dialect.Insert(tableMembers).Rows(goqu.Record{
		colName:      m.Name,
		colEmail:     m.Email,
		colPhone:     m.Phone,
		colCreatedAt: m.CreatedAt,
		colUpdatedAt: m.UpdatedAt,
	}).Returning(goqu.C(colID))
	return toQuery(ds.Prepared(true).ToSQL())
}

func updateMemberQuery(m *model.Member) (sqlQuery, error) {
	ds := postgres.Dialect.Update(tableMembers).Set(goqu.Record{
		colName:      m.Name,
		colEmail:     m.Email,
		colPhone:     m.Phone,
		colUpdatedAt: m.UpdatedAt,
	}).Where(goqu.C(colID).Eq(m.ID))
	return toQuery(ds.Prepared(true).ToSQL())
}

func deleteMemberQuery(id int64) (sqlQuery, error) {
	return toQuery(postgres.Dialect.Delete(tableMembers).Where(goqu.C(colID).Eq(id)).Prepared(true).ToSQL())
}

// ─── borrowings ───

func selectActiveBorrowingQuery(bookID int64, memberID *int64, lock LockMode) (sqlQuery, error) {
	where := goqu.Ex{
		colBookID:       bookID,
		colReturnedDate: nil,
	}
	if memberID != nil {
		where[colMemberID] = *memberID
	}
	ds := postgres.Dialect.From(tableBorrowings).Select(columns(borrowingColumns)...).Where(where)
	return toQuery(withLock(ds, lock).Prepared(true).ToSQL())
}

func existsBorrowingQuery(col string, id int64) (sqlQuery, error) {
	ds := postgres.Dialect.From(tableBorrowings).
		Select(goqu.L("1")).
		Where(goqu.C(col).Eq(id)).
		Limit(1)
	return toQuery(ds.Prepared(true).ToSQL())
}

func insertBorrowingQuery(b *model.Borrowing) (sqlQuery, error) {
	ds := postgres.Dialect.Insert(tableBorrowings).Rows(goqu.Record{
		colBookID:       b.BookID,
		colMemberID:     b.MemberID,
		colBorrowedDate: b.BorrowedAt,
	}).Returning(goqu.C(colID))
	return toQuery(ds.Prepared(true).ToSQL())
}

func markReturnedQuery(id int64, at time.Time) (sqlQuery, error) {
	ds := postgres.Dialect.Update(tableBorrowings).
		Set(goqu.Record{colReturnedDate: at}).
		Where(goqu.C(colID).Eq(id), goqu.C(colReturnedDate).IsNull())
	return toQuery(ds.Prepared(true).ToSQL())
}

// selectBorrowingDetailsQuery joins each borrowing with its book and member,
// newest first.
func selectBorrowingDetailsQuery(where exp.Expression, page model.Page) (sqlQuery, error) {
	cols := qualified(aliasBorrowing, borrowingColumns)
	cols = append(cols, qualified(aliasBook, bookColumns)...)
	cols = append(cols, qualified(aliasMember, memberColumns)...)

	ds := postgres.Dialect.
		From(goqu.T(tableBorrowings).As(aliasBorrowing)).
		Join(goqu.T(tableBooks).As(aliasBook), goqu.On(goqu.I(aliasBook+"."+colID).Eq(goqu.I(aliasBorrowing+"."+colBookID)))).
		Join(goqu.T(tableMembers).As(aliasMember), goqu.On(goqu.I(aliasMember+"."+colID).Eq(goqu.I(aliasBorrowing+"."+colMemberID)))).
		Select(cols...).
		Order(goqu.I(aliasBorrowing+"."+colBorrowedDate).Desc(), goqu.I(aliasBorrowing+"."+colID).Desc())
	if where != nil {
		ds = ds.Where(where)
	}
	return toQuery(withPage(ds, page).Prepared(true).ToSQL())
}

func activeBorrowingsFilter() exp.Expression {
	return goqu.I(aliasBorrowing + "." + colReturnedDate).IsNull()
}

func borrowingsByFilter(col string, id int64) exp.Expression {
	return goqu.I(aliasBorrowing + "." + col).Eq(id)
}
