package config

import (
	"time"

	dbutils "github.com/tendant/db-utils/db"

	"github.com/roomyhq/device-trust/pkg/notification"
)

// DbConfig holds the Postgres connection settings.
type DbConfig struct {
	Host     string `env:"TRUST_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"TRUST_PG_PORT" env-default:"5432"`
	Database string `env:"TRUST_PG_DATABASE" env-default:"trust_db"`
	User     string `env:"TRUST_PG_USER" env-default:"trust"`
	Password string `env:"TRUST_PG_PASSWORD" env-default:"pwd"`
}

// ToDbConfig converts to the db-utils pool configuration.
func (d DbConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

// EmailConfig holds SMTP settings for verification and reset emails.
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:"noreply@example.com"`
	Password string `env:"EMAIL_PASSWORD" env-default:"pwd"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

// ToSMTPConfig converts to the notification package's SMTP configuration.
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     e.Host,
		Port:     int(e.Port),
		Username: e.Username,
		Password: e.Password,
		From:     e.From,
		TLS:      e.TLS,
	}
}

// DeviceTrustConfig tunes the device verification flow.
type DeviceTrustConfig struct {
	BaseURL            string        `env:"TRUST_BASE_URL" env-default:"http://localhost:4000"`
	TokenTTL           time.Duration `env:"TRUST_DEVICE_TOKEN_TTL" env-default:"30m"`
	RateLimitThreshold int           `env:"TRUST_RATE_LIMIT_THRESHOLD" env-default:"5"`
	RateLimitWindow    time.Duration `env:"TRUST_RATE_LIMIT_WINDOW" env-default:"1h"`
}

// SessionConfig holds the session token settings.
type SessionConfig struct {
	JwtSecret      string        `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	TokenTTL       time.Duration `env:"SESSION_TOKEN_TTL" env-default:"24h"`
	CookieHttpOnly bool          `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure   bool          `env:"COOKIE_SECURE" env-default:"false"`
}

// RedisConfig holds the optional Redis connection for distributed rate
// limiting. An empty Addr selects the in-memory limiter.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// PasswordPolicyConfig sets the requirements for new passwords.
type PasswordPolicyConfig struct {
	MinLength        int  `env:"PASSWORD_MIN_LENGTH" env-default:"8"`
	RequireDigit     bool `env:"PASSWORD_REQUIRE_DIGIT" env-default:"false"`
	RequireUppercase bool `env:"PASSWORD_REQUIRE_UPPERCASE" env-default:"false"`
}

// RequestLimitConfig tunes the per-IP limiter on unauthenticated endpoints.
type RequestLimitConfig struct {
	Capacity   int     `env:"REQUEST_LIMIT_CAPACITY" env-default:"30"`
	RefillRate float64 `env:"REQUEST_LIMIT_REFILL_RATE" env-default:"0.5"`
}
