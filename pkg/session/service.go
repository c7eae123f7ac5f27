package session

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/role"
)

const (
	// AccessTokenName is the cookie carrying the session token.
	AccessTokenName = "access_token"

	defaultAccessTokenTTL = 24 * time.Hour
	issuer                = "device-trust"
)

// SessionClaims are the custom claims carried by a session token.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// SessionService signs and verifies session tokens. A session token is only
// minted after the device check passed, so a valid token implies a trusted
// device at issue time.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

// SessionServiceOption configures a SessionService.
type SessionServiceOption func(*SessionService)

// WithTokenTTL overrides the session token lifetime.
func WithTokenTTL(ttl time.Duration) SessionServiceOption {
	return func(s *SessionService) {
		s.ttl = ttl
	}
}

// WithNow overrides the clock used for issue and expiry timestamps.
func WithNow(nowFn func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		s.nowFn = nowFn
	}
}

// NewSessionService creates a session service signing with HS256.
func NewSessionService(secret string, opts ...SessionServiceOption) *SessionService {
	s := &SessionService{
		secret: []byte(secret),
		ttl:    defaultAccessTokenTTL,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionToken is a signed token and its expiry.
type SessionToken struct {
	Token  string
	Expiry time.Time
}

// CreateSession mints a session token for a user on a trusted device.
func (s *SessionService) CreateSession(userID uuid.UUID, userRole role.Role, deviceID uuid.UUID) (SessionToken, error) {
	now := s.nowFn()
	claims := SessionClaims{
		UserID:   userID.String(),
		Role:     string(userRole),
		DeviceID: deviceID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    issuer,
			Subject:   userID.String(),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		slog.Error("Failed to sign session token", "user_id", userID, "error", err)
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Expiry: claims.ExpiresAt.Time}, nil
}

// ParseSession verifies a token string and returns its claims.
func (s *SessionService) ParseSession(tokenStr string) (*SessionClaims, error) {
	claims := new(SessionClaims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.nowFn))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
