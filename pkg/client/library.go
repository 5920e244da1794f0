package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const apiPrefix = "/api/v1"

// LibraryClient calls the library REST API.
type LibraryClient struct {
	httpClient *HttpClient
}

func NewLibraryClient(baseURL string) *LibraryClient {
	return &LibraryClient{httpClient: NewHttpClient(baseURL)}
}

func pageQuery(q url.Values, limit, offset int) string {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *LibraryClient) CreateBook(ctx context.Context, body any) (*Response, error) {
	return c.httpClient.POST(ctx, apiPrefix+"/books", body)
}

func (c *LibraryClient) CreateBookRaw(ctx context.Context, rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw(ctx, apiPrefix+"/books", rawBody)
}

func (c *LibraryClient) GetBooks(ctx context.Context, title, author string, limit, offset int) (*Response, error) {
	q := url.Values{}
	if title != "" {
		q.Set("title", title)
	}
	if author != "" {
		q.Set("author", author)
	}
	return c.httpClient.GET(ctx, apiPrefix+"/books"+pageQuery(q, limit, offset))
}

func (c *LibraryClient) GetBook(ctx context.Context, id int64) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("%s/books/%d", apiPrefix, id))
}

func (c *LibraryClient) UpdateBook(ctx context.Context, id int64, body any) (*Response, error) {
	return c.httpClient.PATCH(ctx, fmt.Sprintf("%s/books/%d", apiPrefix, id), body)
}

func (c *LibraryClient) DeleteBook(ctx context.Context, id int64) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("%s/books/%d", apiPrefix, id))
}

func (c *LibraryClient) CreateMember(ctx context.Context, body any) (*Response, error) {
	return c.httpClient.POST(ctx, apiPrefix+"/members", body)
}

func (c *LibraryClient) GetMembers(ctx context.Context, limit, offset int) (*Response, error) {
	return c.httpClient.GET(ctx, apiPrefix+"/members"+pageQuery(url.Values{}, limit, offset))
}

func (c *LibraryClient) GetMember(ctx context.Context, id int64) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("%s/members/%d", apiPrefix, id))
}

func (c *LibraryClient) UpdateMember(ctx context.Context, id int64, body any) (*Response, error) {
	return c.httpClient.PATCH(ctx, fmt.Sprintf("%s/members/%d", apiPrefix, id), body)
}

func (c *LibraryClient) DeleteMember(ctx context.Context, id int64) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("%s/members/%d", apiPrefix, id))
}

type borrowRequest struct {
	BookID   int64 `json:"book_id"`
	MemberID int64 `json:"member_id"`
}

func (c *LibraryClient) Borrow(ctx context.Context, bookID, memberID int64) (*Response, error) {
	return c.httpClient.POST(ctx, apiPrefix+"/borrowings/borrow", borrowRequest{BookID: bookID, MemberID: memberID})
}

func (c *LibraryClient) Return(ctx context.Context, bookID, memberID int64) (*Response, error) {
	return c.httpClient.PUT(ctx, apiPrefix+"/borrowings/return", borrowRequest{BookID: bookID, MemberID: memberID})
}

func (c *LibraryClient) GetActiveBorrowings(ctx context.Context, limit, offset int) (*Response, error) {
	return c.httpClient.GET(ctx, apiPrefix+"/borrowings"+pageQuery(url.Values{}, limit, offset))
}

func (c *LibraryClient) GetBorrowingHistory(ctx context.Context, limit, offset int) (*Response, error) {
	return c.httpClient.GET(ctx, apiPrefix+"/borrowings/history"+pageQuery(url.Values{}, limit, offset))
}

func (c *LibraryClient) GetMemberBorrowings(ctx context.Context, memberID int64, limit, offset int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("%s/borrowings/member/%d%s", apiPrefix, memberID, pageQuery(url.Values{}, limit, offset)))
}

func (c *LibraryClient) GetBookBorrowings(ctx context.Context, bookID int64, limit, offset int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("%s/borrowings/book/%d%s", apiPrefix, bookID, pageQuery(url.Values{}, limit, offset)))
}
