package handler

import (
	"net/http"

	"library/internal/library/service"
	httputil "library/pkg/http"
	"library/pkg/logger"
	"library/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type MemberHandler struct {
	service service.Coordinator
	log     *logger.Logger
}

func NewMemberHandler(service service.Coordinator, log *logger.Logger) *MemberHandler {
	return &MemberHandler{
		service: service,
		log:     log,
	}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var member model.Member
	if err := httputil.DecodeJSON(r, &member); err != nil {
		writeError(h.log, w, "CreateMember", err)
		return
	}

	created, err := h.service.CreateMember(r.Context(), &member)
	if err != nil {
		writeError(h.log, w, "CreateMember", err)
		return
	}

	writeCreated(h.log, w, "CreateMember", created)
}

func (h *MemberHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps, "member_id")
	if err != nil {
		writeError(h.log, w, "GetMember", err)
		return
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		writeError(h.log, w, "GetMember", err)
		return
	}

	writeSuccess(h.log, w, "GetMember", member)
}

func (h *MemberHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		writeError(h.log, w, "GetMembers", err)
		return
	}

	members, err := h.service.GetMembers(r.Context(), page)
	if err != nil {
		writeError(h.log, w, "GetMembers", err)
		return
	}

	writePaginated(h.log, w, "GetMembers", members, page.Limit, page.Offset)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps, "member_id")
	if err != nil {
		writeError(h.log, w, "UpdateMember", err)
		return
	}

	var patch model.MemberPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		writeError(h.log, w, "UpdateMember", err)
		return
	}

	member, err := h.service.UpdateMember(r.Context(), id, patch)
	if err != nil {
		writeError(h.log, w, "UpdateMember", err)
		return
	}

	writeSuccess(h.log, w, "UpdateMember", member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps, "member_id")
	if err != nil {
		writeError(h.log, w, "DeleteMember", err)
		return
	}

	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		writeError(h.log, w, "DeleteMember", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MemberHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(apiPrefix+"/members", h.Create)
	router.GET(apiPrefix+"/members", h.GetAll)
	router.GET(apiPrefix+"/members/:id", h.GetByID)
	router.PATCH(apiPrefix+"/members/:id", h.Update)
	router.DELETE(apiPrefix+"/members/:id", h.Delete)
}
