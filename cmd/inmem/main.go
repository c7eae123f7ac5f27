// Package main runs the device trust service without a database, backed by
// in-memory repositories. Useful for quick development, demos, and learning
// the API without Postgres or SMTP. All data is lost when the server stops.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/chi-demo/app"
	"golang.org/x/crypto/bcrypt"

	"github.com/roomyhq/device-trust/pkg/device"
	deviceapi "github.com/roomyhq/device-trust/pkg/device/api"
	"github.com/roomyhq/device-trust/pkg/deviceflow"
	deviceflowapi "github.com/roomyhq/device-trust/pkg/deviceflow/api"
	"github.com/roomyhq/device-trust/pkg/iam"
	"github.com/roomyhq/device-trust/pkg/notification"
	"github.com/roomyhq/device-trust/pkg/ratelimit"
	"github.com/roomyhq/device-trust/pkg/recovery"
	recoveryapi "github.com/roomyhq/device-trust/pkg/recovery/api"
	"github.com/roomyhq/device-trust/pkg/role"
	"github.com/roomyhq/device-trust/pkg/session"
	"github.com/roomyhq/device-trust/pkg/verification"
	verificationapi "github.com/roomyhq/device-trust/pkg/verification/api"
)

const (
	jwtSecret = "inmem-dev-secret-change-in-production"
	baseURL   = "http://localhost:4000"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory device trust service (no database required)")
	slog.Info(strings.Repeat("=", 60))

	userRepo := iam.NewInMemUserRepository()
	tokenRepo := verification.NewInMemTokenRepository()
	deviceRepo := device.NewInMemDeviceRepository()

	// Emails are logged instead of sent in dev mode.
	mockNotifier := notification.NewMockNotifier()
	notificationManager, err := notification.NewNotificationManager(
		notification.WithNotifier(notification.EmailSystem, mockNotifier),
		notification.WithAllTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "error", err)
		os.Exit(-1)
	}

	iamService := iam.NewIamService(userRepo)
	tokenService := verification.NewService(tokenRepo)
	deviceService := device.NewDeviceService(
		deviceRepo,
		tokenService,
		baseURL,
		device.WithNotificationManager(notificationManager),
	)
	flowService := deviceflow.NewDeviceFlowService(tokenService, deviceService, iamService)
	recoveryService := recovery.NewRecoveryService(
		iamService,
		tokenService,
		baseURL,
		recovery.WithNotificationManager(notificationManager),
	)

	seedUser(userRepo)

	sessionService := session.NewSessionService(jwtSecret)
	cookieSetter := session.NewCookieSetter(true, false)

	deviceHandler := deviceapi.NewDeviceHandler(deviceService, iamService)
	flowHandler := deviceflowapi.NewDeviceFlowHandler(flowService,
		deviceflowapi.WithSessionIssuer(sessionService, cookieSetter))
	verificationHandler := verificationapi.NewVerificationHandler(tokenService, iamService)
	recoveryHandler := recoveryapi.NewRecoveryHandler(recoveryService)

	requestLimiter := ratelimit.NewMemoryLimiter(100, 2.0, time.Hour)
	tokenAuth := session.NewJWTAuth(jwtSecret)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)

	server.R.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(requestLimiter))
		r.Mount("/api/devices", deviceHandler.Routes())
		r.Mount("/api/verify", verificationHandler.Routes())
		r.Mount("/api/password", recoveryHandler.Routes())
	})
	server.R.Mount("/auth", flowHandler.Routes())
	server.R.Get("/devices/secure", flowHandler.SecureAccount)

	server.R.Group(func(r chi.Router) {
		r.Use(session.Verifier(tokenAuth))
		r.Use(session.Authenticator)
		r.Get("/api/me/devices", func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := session.AuthUserFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			deviceHandler.ListDevices(authUser.UserID).ServeHTTP(w, r)
		})
	})

	slog.Info("Device trust service ready")
	slog.Info("Base URL: " + baseURL)
	slog.Info("")
	slog.Info("Test user: student@example.com / password123")
	slog.Info("")
	slog.Info("API endpoints:")
	slog.Info("  POST /api/devices/check           - Device check after login")
	slog.Info("  GET  /api/devices/status/{id}     - Poll verification state")
	slog.Info("  GET  /auth/approve-device?token=  - Approve a new device")
	slog.Info("  GET  /devices/secure?token=       - Revoke all devices")
	slog.Info("  POST /api/verify                  - Verify a token")
	slog.Info("  POST /api/password/forgot         - Request a reset email")
	slog.Info("  POST /api/password/reset          - Apply a new password")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

func seedUser(userRepo *iam.InMemUserRepository) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed hashing seed password", "error", err)
		os.Exit(-1)
	}
	now := time.Now().UTC()
	user := iam.User{
		ID:               uuid.New(),
		Email:            "student@example.com",
		PasswordHash:     string(hash),
		EmailConfirmed:   true,
		EmailConfirmedAt: &now,
		Role:             role.RoleStudent,
		CreatedAt:        now,
	}
	if _, err := userRepo.CreateUser(context.Background(), user); err != nil {
		slog.Error("Failed seeding user", "error", err)
		os.Exit(-1)
	}
	slog.Info("Seeded test user", "user_id", user.ID, "email", user.Email)
}
