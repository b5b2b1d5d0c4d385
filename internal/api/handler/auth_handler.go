package handler

import (
	"net/http"

	"github.com/Zeygath/th-2024/internal/api/middleware"
	"github.com/Zeygath/th-2024/internal/app/service"
	"github.com/Zeygath/th-2024/internal/common"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Get("/confirm", h.confirm)
	r.Post("/resend-confirmation", h.resendConfirmation)
}

// RegisterSessionRoutes expects middleware.Auth.Authenticator on r.
func (h *AuthHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	r.Patch("/me", h.updateMe)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.ConfirmEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Email confirmed. You can now log in."})
}

func (h *AuthHandler) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req service.ResendConfirmationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ResendConfirmation(r.Context(), req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, messageResponse{Message: "If that account is awaiting confirmation, a new link has been sent."})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	if err := h.authService.Logout(r.Context(), session.TokenID, session.ExpiresAt); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, identity)
}

func (h *AuthHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req service.UpdateNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.authService.UpdateName(r.Context(), identity.UserID(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, updated)
}
