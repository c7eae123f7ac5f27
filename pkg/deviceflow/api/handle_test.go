package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomyhq/device-trust/pkg/device"
	"github.com/roomyhq/device-trust/pkg/deviceflow"
	"github.com/roomyhq/device-trust/pkg/fingerprint"
	"github.com/roomyhq/device-trust/pkg/iam"
	"github.com/roomyhq/device-trust/pkg/notification"
	"github.com/roomyhq/device-trust/pkg/role"
	"github.com/roomyhq/device-trust/pkg/session"
	"github.com/roomyhq/device-trust/pkg/verification"
)

func newFlowHandler(t *testing.T, opts ...HandlerOption) (*DeviceFlowHandler, string) {
	t.Helper()

	nm, err := notification.NewNotificationManager(
		notification.WithNotifier(notification.EmailSystem, notification.NewMockNotifier()),
		notification.WithAllTemplates(),
	)
	require.NoError(t, err)

	deviceRepo := device.NewInMemDeviceRepository()
	userRepo := iam.NewInMemUserRepository()
	tokenService := verification.NewService(verification.NewInMemTokenRepository())
	deviceService := device.NewDeviceService(deviceRepo, tokenService, "http://localhost:4000",
		device.WithNotificationManager(nm))
	iamService := iam.NewIamService(userRepo)
	flow := deviceflow.NewDeviceFlowService(tokenService, deviceService, iamService)

	ctx := context.Background()
	user, err := userRepo.CreateUser(ctx, iam.User{ID: uuid.New(), Email: "s@example.com", Role: role.RoleStudent})
	require.NoError(t, err)

	desc := fingerprint.Generate(fingerprint.Signals{UserAgent: "test-agent"})
	result, err := deviceService.CheckDevice(ctx, user.ID, user.Email, desc, "")
	require.NoError(t, err)

	dev, err := deviceRepo.GetDeviceByID(ctx, result.DeviceID)
	require.NoError(t, err)
	require.NotNil(t, dev.TokenString)

	return NewDeviceFlowHandler(flow, opts...), *dev.TokenString
}

func TestApproveDevicePage(t *testing.T) {
	handler, tokenStr := newFlowHandler(t)

	req := httptest.NewRequest("GET", "/approve-device?token="+tokenStr, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Device verified")
	assert.Contains(t, rec.Body.String(), "/home")
}

func TestApproveDeviceReusedToken(t *testing.T) {
	handler, tokenStr := newFlowHandler(t)
	router := handler.Routes()

	req := httptest.NewRequest("GET", "/approve-device?token="+tokenStr, nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/approve-device?token="+tokenStr, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been used")
}

func TestApproveDeviceMissingToken(t *testing.T) {
	handler, _ := newFlowHandler(t)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest("GET", "/approve-device", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecureAccountPage(t *testing.T) {
	handler, tokenStr := newFlowHandler(t)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest("GET", "/secure?token="+tokenStr, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account secured")
	assert.Contains(t, rec.Body.String(), "/reset-password")
}

func TestApproveDeviceSetsSessionCookie(t *testing.T) {
	sessions := session.NewSessionService("test-secret")
	cookies := session.NewCookieSetter(true, false)
	handler, tokenStr := newFlowHandler(t, WithSessionIssuer(sessions, cookies))

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest("GET", "/approve-device?token="+tokenStr, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.AccessTokenName {
			found = c
		}
	}
	require.NotNil(t, found, "expected session cookie after approval")
	assert.NotEmpty(t, found.Value)

	claims, err := sessions.ParseSession(found.Value)
	require.NoError(t, err)
	assert.Equal(t, string(role.RoleStudent), claims.Role)
}

func TestSecureAccountClearsSessionCookie(t *testing.T) {
	sessions := session.NewSessionService("test-secret")
	cookies := session.NewCookieSetter(true, false)
	handler, tokenStr := newFlowHandler(t, WithSessionIssuer(sessions, cookies))

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest("GET", "/secure?token="+tokenStr, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.AccessTokenName {
			found = c
		}
	}
	require.NotNil(t, found, "expected cleared session cookie")
	assert.Empty(t, found.Value)
	assert.Less(t, found.MaxAge, 0)
}
