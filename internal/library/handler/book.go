package handler

import (
	"net/http"

	"library/internal/library/service"
	httputil "library/pkg/http"
	"library/pkg/logger"
	"library/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookHandler struct {
	service service.Coordinator
	log     *logger.Logger
}

func NewBookHandler(service service.Coordinator, log *logger.Logger) *BookHandler {
	return &BookHandler{
		service: service,
		log:     log,
	}
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var book model.Book
	if err := httputil.DecodeJSON(r, &book); err != nil {
		writeError(h.log, w, "CreateBook", err)
		return
	}

	created, err := h.service.CreateBook(r.Context(), &book)
	if err != nil {
		writeError(h.log, w, "CreateBook", err)
		return
	}

	writeCreated(h.log, w, "CreateBook", created)
}

func (h *BookHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps, "book_id")
	if err != nil {
		writeError(h.log, w, "GetBook", err)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		writeError(h.log, w, "GetBook", err)
		return
	}

	writeSuccess(h.log, w, "GetBook", book)
}

func (h *BookHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		writeError(h.log, w, "GetBooks", err)
		return
	}
	query := r.URL.Query()
	filter := model.BookFilter{
		Title:  query.Get("title"),
		Author: query.Get("author"),
	}

	books, err := h.service.GetBooks(r.Context(), filter, page)
	if err != nil {
		writeError(h.log, w, "GetBooks", err)
		return
	}

	writePaginated(h.log, w, "GetBooks", books, page.Limit, page.Offset)
}

func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps, "book_id")
	if err != nil {
		writeError(h.log, w, "UpdateBook", err)
		return
	}

	var patch model.BookPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		writeError(h.log, w, "UpdateBook", err)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), id, patch)
	if err != nil {
		writeError(h.log, w, "UpdateBook", err)
		return
	}

	writeSuccess(h.log, w, "UpdateBook", book)
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps, "book_id")
	if err != nil {
		writeError(h.log, w, "DeleteBook", err)
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		writeError(h.log, w, "DeleteBook", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(apiPrefix+"/books", h.Create)
	router.GET(apiPrefix+"/books", h.GetAll)
	router.GET(apiPrefix+"/books/:id", h.GetByID)
	router.PATCH(apiPrefix+"/books/:id", h.Update)
	router.DELETE(apiPrefix+"/books/:id", h.Delete)
}
