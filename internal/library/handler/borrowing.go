package handler

import (
	"context"
	"net/http"

	"library/internal/library/service"
	httputil "library/pkg/http"
	"library/pkg/logger"
	"library/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// BorrowRequest is the body of both borrow and return calls.
type BorrowRequest struct {
	BookID   int64 `json:"book_id"`
	MemberID int64 `json:"member_id"`
}

type BorrowingHandler struct {
	service service.Coordinator
	log     *logger.Logger
}

func NewBorrowingHandler(service service.Coordinator, log *logger.Logger) *BorrowingHandler {
	return &BorrowingHandler{
		service: service,
		log:     log,
	}
}

func (h *BorrowingHandler) Borrow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req BorrowRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(h.log, w, "BorrowBook", err)
		return
	}

	borrowing, err := h.service.BorrowBook(r.Context(), req.BookID, req.MemberID)
	if err != nil {
		writeError(h.log, w, "BorrowBook", err)
		return
	}

	writeCreated(h.log, w, "BorrowBook", borrowing)
}

func (h *BorrowingHandler) Return(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req BorrowRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(h.log, w, "ReturnBook", err)
		return
	}

	borrowing, err := h.service.ReturnBook(r.Context(), req.BookID, req.MemberID)
	if err != nil {
		writeError(h.log, w, "ReturnBook", err)
		return
	}

	writeSuccess(h.log, w, "ReturnBook", borrowing)
}

func (h *BorrowingHandler) GetActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, "GetActiveBorrowings", h.service.GetActiveBorrowings)
}

func (h *BorrowingHandler) GetHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, "GetBorrowingHistory", h.service.GetBorrowingHistory)
}

func (h *BorrowingHandler) GetByMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	memberID, err := pathID(ps, "member_id")
	if err != nil {
		writeError(h.log, w, "GetBorrowingsByMember", err)
		return
	}
	h.list(w, r, "GetBorrowingsByMember", func(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
		return h.service.GetBorrowingsByMember(ctx, memberID, page)
	})
}

func (h *BorrowingHandler) GetByBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookID, err := pathID(ps, "book_id")
	if err != nil {
		writeError(h.log, w, "GetBorrowingsByBook", err)
		return
	}
	h.list(w, r, "GetBorrowingsByBook", func(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error) {
		return h.service.GetBorrowingsByBook(ctx, bookID, page)
	})
}

type listFunc func(ctx context.Context, page model.Page) ([]*model.BorrowingDetail, error)

func (h *BorrowingHandler) list(w http.ResponseWriter, r *http.Request, name string, fetch listFunc) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		writeError(h.log, w, name, err)
		return
	}

	borrowings, err := fetch(r.Context(), page)
	if err != nil {
		writeError(h.log, w, name, err)
		return
	}

	writePaginated(h.log, w, name, borrowings, page.Limit, page.Offset)
}

func (h *BorrowingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(apiPrefix+"/borrowings/borrow", h.Borrow)
	router.PUT(apiPrefix+"/borrowings/return", h.Return)
	router.GET(apiPrefix+"/borrowings", h.GetActive)
	router.GET(apiPrefix+"/borrowings/history", h.GetHistory)
	router.GET(apiPrefix+"/borrowings/member/:id", h.GetByMember)
	router.GET(apiPrefix+"/borrowings/book/:id", h.GetByBook)
}
