package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Zeygath/th-2024/internal/app/service"
	"github.com/Zeygath/th-2024/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService SubmissionService
	moderationService ModerationService
	maxUploadBytes    int64
}

func NewSubmissionHandler(ss SubmissionService, ms ModerationService, maxUploadBytes int64) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, moderationService: ms, maxUploadBytes: maxUploadBytes}
}

func (h *SubmissionHandler) RegisterUserRoutes(r chi.Router) {
	r.Post("/submissions", h.submit)
}

func (h *SubmissionHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/submissions", func(r chi.Router) {
		r.Get("/", h.listPending)
		r.Post("/{submissionID}/approve", h.decide(true))
		r.Post("/{submissionID}/reject", h.decide(false))
	})
}

// submit takes multipart/form-data with riddle_id, answer and an optional image.
func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	image, ok := readMultipartImage(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	riddleID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("riddle_id")), 10, 64)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid riddle_id")
		return
	}
	req := service.SubmitAnswerRequest{RiddleID: riddleID, Answer: r.FormValue("answer")}

	result, err := h.submissionService.Submit(r.Context(), identity, req, image)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *SubmissionHandler) listPending(w http.ResponseWriter, r *http.Request) {
	page, err := h.moderationService.ListPending(r.Context(), intQueryParam(r, "page", 1))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *SubmissionHandler) decide(approved bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submission, err := h.moderationService.Decide(r.Context(), chi.URLParam(r, "submissionID"), approved)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, submission)
	}
}
