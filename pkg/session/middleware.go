package session

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/role"
)

type contextKey string

const authUserKey contextKey = "auth_user"

// AuthUser is the authenticated principal extracted from a session token.
type AuthUser struct {
	UserID   uuid.UUID
	Role     role.Role
	DeviceID uuid.UUID
}

// NewJWTAuth builds the jwtauth verifier for the session signing secret.
func NewJWTAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// TokenFromCookie extracts the session token from the access token cookie.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessTokenName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Verifier verifies the session token from the Authorization header or the
// access token cookie and stores the result in the request context.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

// Authenticator rejects requests without a valid session token and attaches
// the AuthUser to the context for downstream handlers.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			http.Error(w, "missing or invalid session", http.StatusUnauthorized)
			return
		}

		authUser, err := authUserFromClaims(claims)
		if err != nil {
			http.Error(w, "invalid session claims", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authUserKey, authUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthUserFromContext returns the authenticated user stored by Authenticator.
func AuthUserFromContext(ctx context.Context) (AuthUser, bool) {
	authUser, ok := ctx.Value(authUserKey).(AuthUser)
	return authUser, ok
}

// RequireRole allows only sessions carrying one of the given roles.
func RequireRole(roles ...role.Role) func(http.Handler) http.Handler {
	allowed := make(map[role.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := AuthUserFromContext(r.Context())
			if !ok {
				http.Error(w, "missing or invalid session", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[authUser.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authUserFromClaims(claims map[string]interface{}) (AuthUser, error) {
	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return AuthUser{}, err
	}

	roleStr, _ := claims["role"].(string)
	userRole, err := role.Parse(roleStr)
	if err != nil {
		userRole = role.RoleUnassigned
	}

	authUser := AuthUser{UserID: userID, Role: userRole}
	if deviceIDStr, ok := claims["device_id"].(string); ok && deviceIDStr != "" {
		if deviceID, err := uuid.Parse(deviceIDStr); err == nil {
			authUser.DeviceID = deviceID
		}
	}
	return authUser, nil
}
