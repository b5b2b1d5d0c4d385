package handler

import (
	"net/http"

	"github.com/Zeygath/th-2024/internal/app/service"
	"github.com/Zeygath/th-2024/internal/common"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService LeaderboardService
}

func NewLeaderboardHandler(ls LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func (h *LeaderboardHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/leaderboard", h.top)
}

func (h *LeaderboardHandler) top(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboardService.Top(r.Context(), intQueryParam(r, "limit", service.DefaultLeaderboardLimit))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
