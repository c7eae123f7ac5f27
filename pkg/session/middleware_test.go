package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomyhq/device-trust/pkg/role"
)

func protectedRouter(secret string, roles ...role.Role) chi.Router {
	tokenAuth := NewJWTAuth(secret)
	r := chi.NewRouter()
	r.Use(Verifier(tokenAuth))
	r.Use(Authenticator)
	if len(roles) > 0 {
		r.Use(RequireRole(roles...))
	}
	r.Get("/protected", func(w http.ResponseWriter, r *http.Request) {
		authUser, ok := AuthUserFromContext(r.Context())
		if !ok {
			http.Error(w, "no auth user", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(authUser.UserID.String()))
	})
	return r
}

func TestAuthenticatorAcceptsCookieToken(t *testing.T) {
	svc := NewSessionService(testSecret)
	userID := uuid.New()
	token, err := svc.CreateSession(userID, role.RoleStudent, uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenName, Value: token.Token})
	rec := httptest.NewRecorder()

	protectedRouter(testSecret).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), rec.Body.String())
}

func TestAuthenticatorAcceptsBearerToken(t *testing.T) {
	svc := NewSessionService(testSecret)
	token, err := svc.CreateSession(uuid.New(), role.RoleStudent, uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	rec := httptest.NewRecorder()

	protectedRouter(testSecret).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticatorRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/protected", nil)
	rec := httptest.NewRecorder()

	protectedRouter(testSecret).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	svc := NewSessionService(testSecret)

	studentToken, err := svc.CreateSession(uuid.New(), role.RoleStudent, uuid.New())
	require.NoError(t, err)
	adminToken, err := svc.CreateSession(uuid.New(), role.RoleAdmin, uuid.New())
	require.NoError(t, err)

	router := protectedRouter(testSecret, role.RoleAdmin, role.RoleOwner)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenName, Value: studentToken.Token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenName, Value: adminToken.Token})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCookieSetter(t *testing.T) {
	setter := NewCookieSetter(true, false)
	rec := httptest.NewRecorder()

	require.NoError(t, setter.SetCookie(rec, AccessTokenName, "value", time.Now().Add(time.Hour)))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AccessTokenName, cookies[0].Name)
	assert.Equal(t, "value", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = httptest.NewRecorder()
	require.NoError(t, setter.ClearCookie(rec, AccessTokenName))
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
