// Package api exposes the password recovery endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/roomyhq/device-trust/pkg/recovery"
	"github.com/roomyhq/device-trust/pkg/utils"
)

// RecoveryHandler handles the forgot and reset password endpoints.
type RecoveryHandler struct {
	service *recovery.RecoveryService
}

// NewRecoveryHandler creates a recovery handler.
func NewRecoveryHandler(service *recovery.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{service: service}
}

// Routes mounts the recovery endpoints on a chi router.
func (h *RecoveryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/forgot", h.ForgotPassword)
	r.Post("/reset", h.ResetPassword)
	return r
}

// ForgotPasswordRequest asks for a reset email.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse is always a success body on well-formed input.
type ForgotPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ForgotPassword handles POST /forgot. The response is identical for known
// and unknown addresses.
func (h *RecoveryHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Email is required"})
		return
	}

	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		slog.Error("Failed to process password reset request", "email", utils.MaskEmail(req.Email), "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Internal error"})
		return
	}

	render.JSON(w, r, ForgotPasswordResponse{
		Success: true,
		Message: "If an account exists for that address, a reset email has been sent.",
	})
}

// ResetPasswordRequest applies a new password using a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword handles POST /reset.
func (h *RecoveryHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Token == "" || req.Password == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Token and password are required"})
		return
	}

	err := h.service.CompleteReset(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, recovery.ErrWeakPassword):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Password does not meet the minimum requirements"})
		case errors.Is(err, recovery.ErrTokenExpired):
			render.Status(r, http.StatusGone)
			render.JSON(w, r, map[string]string{"error": "Reset link has expired. Please request a new one."})
		case errors.Is(err, recovery.ErrInvalidToken):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Reset link is invalid or has already been used."})
		default:
			slog.Error("Failed to reset password", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Internal error"})
		}
		return
	}

	render.JSON(w, r, map[string]bool{"success": true})
}
