package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jinzhu/copier"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/roomyhq/device-trust/pkg/config"
	"github.com/roomyhq/device-trust/pkg/device"
	deviceapi "github.com/roomyhq/device-trust/pkg/device/api"
	"github.com/roomyhq/device-trust/pkg/deviceflow"
	deviceflowapi "github.com/roomyhq/device-trust/pkg/deviceflow/api"
	"github.com/roomyhq/device-trust/pkg/iam"
	"github.com/roomyhq/device-trust/pkg/notification"
	"github.com/roomyhq/device-trust/pkg/ratelimit"
	"github.com/roomyhq/device-trust/pkg/recovery"
	recoveryapi "github.com/roomyhq/device-trust/pkg/recovery/api"
	"github.com/roomyhq/device-trust/pkg/session"
	"github.com/roomyhq/device-trust/pkg/verification"
	verificationapi "github.com/roomyhq/device-trust/pkg/verification/api"
)

type Config struct {
	DbConfig           config.DbConfig
	AppConfig          app.AppConfig
	EmailConfig        config.EmailConfig
	DeviceTrustConfig  config.DeviceTrustConfig
	SessionConfig      config.SessionConfig
	RedisConfig        config.RedisConfig
	RequestLimitConfig config.RequestLimitConfig
	PasswordPolicy     config.PasswordPolicyConfig
}

func main() {
	godotenv.Load()

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := cfg.DbConfig.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	notificationManager, err := notification.NewNotificationManager(
		notification.WithSMTP(cfg.EmailConfig.ToSMTPConfig()),
		notification.WithAllTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "error", err)
		os.Exit(-1)
	}

	userRepo := iam.NewPostgresUserRepository(pool)
	tokenRepo := verification.NewPostgresTokenRepository(pool)
	deviceRepo := device.NewPostgresDeviceRepository(pool)

	iamService := iam.NewIamService(userRepo)
	tokenService := verification.NewService(tokenRepo)

	deviceService := device.NewDeviceService(
		deviceRepo,
		tokenService,
		cfg.DeviceTrustConfig.BaseURL,
		device.WithNotificationManager(notificationManager),
		device.WithTokenTTL(cfg.DeviceTrustConfig.TokenTTL),
		device.WithRateLimit(int64(cfg.DeviceTrustConfig.RateLimitThreshold), cfg.DeviceTrustConfig.RateLimitWindow),
	)

	flowService := deviceflow.NewDeviceFlowService(tokenService, deviceService, iamService)

	var passwordPolicy recovery.PasswordPolicy
	copier.Copy(&passwordPolicy, &cfg.PasswordPolicy)
	recoveryService := recovery.NewRecoveryService(
		iamService,
		tokenService,
		cfg.DeviceTrustConfig.BaseURL,
		recovery.WithNotificationManager(notificationManager),
		recovery.WithPasswordPolicy(passwordPolicy),
	)

	var requestLimiter ratelimit.Limiter
	if cfg.RedisConfig.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		requestLimiter = ratelimit.NewRedisLimiter(redisClient, "trust:req", cfg.RequestLimitConfig.Capacity, cfg.DeviceTrustConfig.RateLimitWindow)
		slog.Info("Using redis request limiter", "addr", cfg.RedisConfig.Addr)
	} else {
		requestLimiter = ratelimit.NewMemoryLimiter(cfg.RequestLimitConfig.Capacity, cfg.RequestLimitConfig.RefillRate, cfg.DeviceTrustConfig.RateLimitWindow)
	}

	sessionService := session.NewSessionService(cfg.SessionConfig.JwtSecret, session.WithTokenTTL(cfg.SessionConfig.TokenTTL))
	cookieSetter := session.NewCookieSetter(cfg.SessionConfig.CookieHttpOnly, cfg.SessionConfig.CookieSecure)

	deviceHandler := deviceapi.NewDeviceHandler(deviceService, iamService)
	flowHandler := deviceflowapi.NewDeviceFlowHandler(flowService,
		deviceflowapi.WithSessionIssuer(sessionService, cookieSetter))
	verificationHandler := verificationapi.NewVerificationHandler(tokenService, iamService)
	recoveryHandler := recoveryapi.NewRecoveryHandler(recoveryService)

	tokenAuth := session.NewJWTAuth(cfg.SessionConfig.JwtSecret)

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

	server.Run()
}
