// Package api exposes the device check and device listing endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/device"
	"github.com/roomyhq/device-trust/pkg/fingerprint"
	"github.com/roomyhq/device-trust/pkg/iam"
)

// DeviceHandler handles HTTP requests for device checks and listing.
type DeviceHandler struct {
	deviceService *device.DeviceService
	iamService    *iam.IamService
	validate      *validator.Validate
}

// NewDeviceHandler creates a new device handler.
func NewDeviceHandler(deviceService *device.DeviceService, iamService *iam.IamService) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		iamService:    iamService,
		validate:      validator.New(),
	}
}

// CheckDeviceRequest is the body of the device check call, made by the
// client immediately after credential authentication and before a full
// session is granted.
type CheckDeviceRequest struct {
	UserID      string                 `json:"user_id" validate:"required,uuid"`
	Fingerprint fingerprint.Descriptor `json:"fingerprint"`
	Timezone    string                 `json:"timezone,omitempty"`
	Region      string                 `json:"region,omitempty"`
}

// CheckDeviceResponse is the outcome of a device check.
type CheckDeviceResponse struct {
	NeedsVerification bool   `json:"needsVerification"`
	DeviceID          string `json:"deviceId"`
	Message           string `json:"message,omitempty"`
}

// RateLimitedResponse is returned with HTTP 429.
type RateLimitedResponse struct {
	Error       string `json:"error"`
	RateLimited bool   `json:"rateLimited"`
}

// ErrorResponse is a generic error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes mounts the device endpoints on a chi router.
func (h *DeviceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/check", h.CheckDevice)
	r.Get("/status/{deviceID}", h.DeviceStatus)
	return r
}

// CheckDevice handles POST /check.
func (h *DeviceHandler) CheckDevice(w http.ResponseWriter, r *http.Request) {
	var req CheckDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request"})
		return
	}
	// Clients that do not submit a descriptor get a lower-entropy
	// fingerprint built from request headers.
	if req.Fingerprint.Hash == "" {
		signals := fingerprint.FromRequest(r)
		req.Fingerprint = fingerprint.Generate(signals)
		if req.Timezone == "" {
			req.Timezone = signals.Timezone
		}
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid user id"})
		return
	}

	user, err := h.iamService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, iam.ErrUserNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Error: "User not found"})
			return
		}
		slog.Error("Failed to load user for device check", "user_id", userID, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal error"})
		return
	}

	region := req.Region
	if region == "" {
		region = fingerprint.RegionFromTimezone(req.Timezone)
	}

	result, err := h.deviceService.CheckDevice(r.Context(), userID, user.Email, req.Fingerprint, region)
	if err != nil {
		if errors.Is(err, device.ErrRateLimited) {
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, RateLimitedResponse{
				Error:       "Too many new device attempts. Please try again later.",
				RateLimited: true,
			})
			return
		}
		slog.Error("Device check failed", "user_id", userID, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal error"})
		return
	}

	render.JSON(w, r, CheckDeviceResponse{
		NeedsVerification: result.NeedsVerification,
		DeviceID:          result.DeviceID.String(),
		Message:           result.Message,
	})
}

// DeviceStatusResponse reports a device's verification state. The client
// polls this while waiting for the user to click the email link.
type DeviceStatusResponse struct {
	DeviceID string `json:"deviceId"`
	Verified bool   `json:"verified"`
}

// DeviceStatus handles GET /status/{deviceID}.
func (h *DeviceHandler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid device id"})
		return
	}

	dev, err := h.deviceService.GetDeviceByID(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Error: "Device not found"})
			return
		}
		slog.Error("Failed to load device status", "device_id", deviceID, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal error"})
		return
	}

	render.JSON(w, r, DeviceStatusResponse{
		DeviceID: dev.ID.String(),
		Verified: dev.Verified,
	})
}

// ListDevicesResponse is the body of the authenticated device listing.
type ListDevicesResponse struct {
	Devices []device.Device `json:"devices"`
}

// ListDevices handles GET / for the authenticated user. Mounted behind the
// session middleware, which stores the user ID in the request context.
func (h *DeviceHandler) ListDevices(userID uuid.UUID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devices, err := h.deviceService.FindDevicesByUser(r.Context(), userID)
		if err != nil {
			slog.Error("Failed to list devices", "user_id", userID, "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "Internal error"})
			return
		}
		render.JSON(w, r, ListDevicesResponse{Devices: devices})
	}
}
