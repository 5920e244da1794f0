package cache

import (
	"fmt"
	"net/url"

	"library/pkg/model"
)

const (
	BookListPrefix   = "books:list"
	MemberListPrefix = "members:list"
	BorrowingsPrefix = "borrowings"
)

func BookKey(id int64) string {
	return fmt.Sprintf("books:id:%d", id)
}

// BookListKey escapes the filter values so a ':' inside a title or author
// cannot shift one field into the next.
func BookListKey(filter model.BookFilter, page model.Page) string {
	return fmt.Sprintf("%s:title:%s:author:%s:limit:%d:offset:%d",
		BookListPrefix, url.QueryEscape(filter.Title), url.QueryEscape(filter.Author), page.Limit, page.Offset)
}

func MemberKey(id int64) string {
	return fmt.Sprintf("members:id:%d", id)
}

func MemberListKey(page model.Page) string {
	return fmt.Sprintf("%s:limit:%d:offset:%d", MemberListPrefix, page.Limit, page.Offset)
}

func ActiveBorrowingsKey(page model.Page) string {
	return fmt.Sprintf("%s:list:limit:%d:offset:%d", BorrowingsPrefix, page.Limit, page.Offset)
}

func MemberBorrowingsKey(memberID int64, page model.Page) string {
	return fmt.Sprintf("%s:member_id:%d:limit:%d:offset:%d", BorrowingsPrefix, memberID, page.Limit, page.Offset)
}

func BookBorrowingsKey(bookID int64, page model.Page) string {
	return fmt.Sprintf("%s:book_id:%d:limit:%d:offset:%d", BorrowingsPrefix, bookID, page.Limit, page.Offset)
}

func BorrowingHistoryKey(page model.Page) string {
	return fmt.Sprintf("%s:history:limit:%d:offset:%d", BorrowingsPrefix, page.Limit, page.Offset)
}
