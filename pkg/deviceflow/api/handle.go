// Package api serves the browser-facing device approval and account
// lockdown links embedded in verification emails.
package api

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roomyhq/device-trust/pkg/deviceflow"
	"github.com/roomyhq/device-trust/pkg/session"
)

// DeviceFlowHandler renders the landing pages behind the email links.
type DeviceFlowHandler struct {
	flow     *deviceflow.DeviceFlowService
	sessions *session.SessionService
	cookies  session.CookieSetter
}

// HandlerOption configures a DeviceFlowHandler.
type HandlerOption func(*DeviceFlowHandler)

// WithSessionIssuer makes a successful device approval establish a session
// cookie, and securing an account clear it.
func WithSessionIssuer(sessions *session.SessionService, cookies session.CookieSetter) HandlerOption {
	return func(h *DeviceFlowHandler) {
		h.sessions = sessions
		h.cookies = cookies
	}
}

// NewDeviceFlowHandler creates a handler for the device flow pages.
func NewDeviceFlowHandler(flow *deviceflow.DeviceFlowService, opts ...HandlerOption) *DeviceFlowHandler {
	h := &DeviceFlowHandler{flow: flow}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the link endpoints on a chi router.
func (h *DeviceFlowHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/approve-device", h.ApproveDevice)
	r.Get("/secure", h.SecureAccount)
	return r
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .RedirectTo}}<meta http-equiv="refresh" content="3;url={{.RedirectTo}}">{{end}}
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .RedirectTo}}<p><a href="{{.RedirectTo}}">Continue</a></p>{{end}}
</body>
</html>
`))

type pageData struct {
	Title      string
	Message    string
	RedirectTo string
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		slog.Error("Failed to render page", "error", err)
	}
}

// ApproveDevice handles GET /approve-device?token=. A valid token trusts
// the pending device and forwards the user to their role's landing page.
func (h *DeviceFlowHandler) ApproveDevice(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		renderPage(w, http.StatusBadRequest, pageData{
			Title:   "Invalid link",
			Message: "This verification link is missing its token.",
		})
		return
	}

	result, err := h.flow.ConfirmDevice(r.Context(), tokenStr)
	if err != nil {
		h.renderFlowError(w, err, "approve device")
		return
	}

	if h.sessions != nil {
		token, err := h.sessions.CreateSession(result.UserID, result.Role, result.DeviceID)
		if err != nil {
			slog.Error("Failed to create session after device approval", "user_id", result.UserID, "error", err)
		} else if err := h.cookies.SetCookie(w, session.AccessTokenName, token.Token, token.Expiry); err != nil {
			slog.Error("Failed to set session cookie", "user_id", result.UserID, "error", err)
		}
	}

	renderPage(w, http.StatusOK, pageData{
		Title:      "Device verified",
		Message:    "Your device \"" + result.DeviceName + "\" has been verified. You can now continue signing in.",
		RedirectTo: result.Role.RedirectPath(),
	})
}

// SecureAccount handles GET /secure?token=. A valid token revokes every
// device on the account.
func (h *DeviceFlowHandler) SecureAccount(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		renderPage(w, http.StatusBadRequest, pageData{
			Title:   "Invalid link",
			Message: "This link is missing its token.",
		})
		return
	}

	result, err := h.flow.SecureAccount(r.Context(), tokenStr)
	if err != nil {
		h.renderFlowError(w, err, "secure account")
		return
	}

	if h.cookies != nil {
		if err := h.cookies.ClearCookie(w, session.AccessTokenName); err != nil {
			slog.Error("Failed to clear session cookie", "user_id", result.UserID, "error", err)
		}
	}

	renderPage(w, http.StatusOK, pageData{
		Title:      "Account secured",
		Message:    "All devices on your account have been signed out. Please reset your password before signing in again.",
		RedirectTo: "/reset-password",
	})
	slog.Info("Account secured via email link", "user_id", result.UserID, "revoked", result.RevokedDevices)
}

func (h *DeviceFlowHandler) renderFlowError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, deviceflow.ErrTokenExpired):
		renderPage(w, http.StatusGone, pageData{
			Title:      "Link expired",
			Message:    "This verification link has expired. Sign in again to receive a fresh one.",
			RedirectTo: "/login",
		})
	case errors.Is(err, deviceflow.ErrInvalidToken):
		renderPage(w, http.StatusBadRequest, pageData{
			Title:   "Invalid link",
			Message: "This link is invalid or has already been used.",
		})
	default:
		slog.Error("Device flow failed", "action", action, "error", err)
		renderPage(w, http.StatusInternalServerError, pageData{
			Title:   "Something went wrong",
			Message: "We could not complete this request. Please try again later.",
		})
	}
}
