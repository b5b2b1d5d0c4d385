package handler

import (
	"net/http"

	"github.com/Zeygath/th-2024/internal/app/service"
	"github.com/Zeygath/th-2024/internal/common"

	"github.com/go-chi/chi/v5"
)

type RiddleHandler struct {
	progressionService ProgressionService
	riddleService      RiddleService
	maxUploadBytes     int64
}

func NewRiddleHandler(ps ProgressionService, rs RiddleService, maxUploadBytes int64) *RiddleHandler {
	return &RiddleHandler{progressionService: ps, riddleService: rs, maxUploadBytes: maxUploadBytes}
}

func (h *RiddleHandler) RegisterUserRoutes(r chi.Router) {
	r.Get("/riddles/current", h.current)
}

func (h *RiddleHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/riddles", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{riddleID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
			r.Post("/image", h.uploadImage)
		})
	})
}

func (h *RiddleHandler) current(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	current, err := h.progressionService.Current(r.Context(), identity)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, current)
}

func (h *RiddleHandler) list(w http.ResponseWriter, r *http.Request) {
	riddles, err := h.riddleService.List(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, riddles)
}

func (h *RiddleHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := int64URLParam(w, r, "riddleID")
	if !ok {
		return
	}
	riddle, err := h.riddleService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, riddle)
}

func (h *RiddleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.RiddleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	riddle, err := h.riddleService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, riddle)
}

func (h *RiddleHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := int64URLParam(w, r, "riddleID")
	if !ok {
		return
	}
	var req service.RiddleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	riddle, err := h.riddleService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, riddle)
}

func (h *RiddleHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := int64URLParam(w, r, "riddleID")
	if !ok {
		return
	}
	if err := h.riddleService.Delete(r.Context(), id); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RiddleHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := int64URLParam(w, r, "riddleID")
	if !ok {
		return
	}
	image, ok := readMultipartImage(w, r, h.maxUploadBytes)
	if !ok {
		return
	}
	if image == nil {
		common.RespondWithError(w, http.StatusBadRequest, "image is required")
		return
	}
	riddle, err := h.riddleService.UploadReferenceImage(r.Context(), id, image)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, riddle)
}
