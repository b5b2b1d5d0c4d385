package handler

import (
	"net/http"

	"github.com/Zeygath/th-2024/internal/app/service"
	"github.com/Zeygath/th-2024/internal/common"

	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	settingsService SettingsService
}

func NewSettingsHandler(settingsService SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/settings", h.get)
}

func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/settings/visibility", h.setVisibility)
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.settingsService.Snapshot(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, snapshot)
}

func (h *SettingsHandler) setVisibility(w http.ResponseWriter, r *http.Request) {
	var req service.SetVisibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := h.settingsService.SetRiddlesVisible(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, settings)
}
