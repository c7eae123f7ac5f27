// Package api exposes the generic token verification endpoint used by the
// frontend to validate links before showing the matching page.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/roomyhq/device-trust/pkg/iam"
	"github.com/roomyhq/device-trust/pkg/utils"
	"github.com/roomyhq/device-trust/pkg/verification"
)

// VerificationHandler validates and consumes verification tokens.
type VerificationHandler struct {
	tokens     *verification.Service
	iamService *iam.IamService
}

// NewVerificationHandler creates a verification handler.
func NewVerificationHandler(tokens *verification.Service, iamService *iam.IamService) *VerificationHandler {
	return &VerificationHandler{
		tokens:     tokens,
		iamService: iamService,
	}
}

// Routes mounts the verification endpoint on a chi router.
func (h *VerificationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.VerifyToken)
	return r
}

// VerifyTokenRequest asks to consume a token of an expected type.
type VerifyTokenRequest struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

// VerifyTokenResponse reports the result of a token verification.
type VerifyTokenResponse struct {
	Valid      bool   `json:"valid"`
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	TokenType  string `json:"tokenType,omitempty"`
	RedirectTo string `json:"redirectTo,omitempty"`
	Error      string `json:"error,omitempty"`
}

// VerifyToken handles POST /. The token is consumed on success, so a second
// call with the same token reports it as already used.
func (h *VerificationHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, VerifyTokenResponse{Valid: false, Error: "Invalid request body"})
		return
	}
	if req.Token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, VerifyTokenResponse{Valid: false, Error: "Token is required"})
		return
	}

	expected, err := verification.ParsePurpose(req.Type)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, VerifyTokenResponse{Valid: false, Error: "Unknown token type"})
		return
	}

	result, err := h.tokens.Consume(r.Context(), req.Token)
	if err != nil {
		status, msg := consumeErrorResponse(err)
		if status == http.StatusInternalServerError {
			slog.Error("Failed to consume verification token", "error", err)
		}
		render.Status(r, status)
		render.JSON(w, r, VerifyTokenResponse{Valid: false, Error: msg})
		return
	}
	if result.Purpose != expected {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, VerifyTokenResponse{Valid: false, Error: "Token is not valid for this action"})
		return
	}

	redirectTo := ""
	switch result.Purpose {
	case verification.PurposeSignup:
		if err := h.iamService.CompleteSignup(r.Context(), result.UserID, result.Email); err != nil {
			slog.Error("Failed to complete signup", "user_id", result.UserID, "email", utils.MaskEmail(result.Email), "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, VerifyTokenResponse{Valid: false, Error: "Failed to complete signup"})
			return
		}
		userRole, err := h.iamService.GetUserRole(r.Context(), result.UserID)
		if err != nil {
			slog.Error("Failed to resolve role after signup", "user_id", result.UserID, "error", err)
		} else {
			redirectTo = userRole.RedirectPath()
		}
	case verification.PurposeRecovery:
		redirectTo = "/reset-password"
	case verification.PurposeDevice:
		userRole, err := h.iamService.GetUserRole(r.Context(), result.UserID)
		if err != nil {
			slog.Error("Failed to resolve role after device verification", "user_id", result.UserID, "error", err)
		} else {
			redirectTo = userRole.RedirectPath()
		}
	}

	render.JSON(w, r, VerifyTokenResponse{
		Valid:      true,
		UserID:     result.UserID.String(),
		Email:      result.Email,
		TokenType:  string(result.Purpose),
		RedirectTo: redirectTo,
	})
}

func consumeErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, verification.ErrTokenNotFound):
		return http.StatusBadRequest, "Invalid token"
	case errors.Is(err, verification.ErrTokenAlreadyUsed):
		return http.StatusBadRequest, "Token has already been used"
	case errors.Is(err, verification.ErrTokenExpired):
		return http.StatusGone, "Token has expired"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
