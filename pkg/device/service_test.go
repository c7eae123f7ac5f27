package device

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomyhq/device-trust/pkg/fingerprint"
	"github.com/roomyhq/device-trust/pkg/notification"
	"github.com/roomyhq/device-trust/pkg/verification"
)

const testBaseURL = "http://localhost:4000"

type testEnv struct {
	repo         *InMemDeviceRepository
	tokenService *verification.Service
	service      *DeviceService
	notifier     *notification.MockNotifier
}

func newTestEnv(t *testing.T, opts ...DeviceServiceOption) *testEnv {
	t.Helper()

	notifier := notification.NewMockNotifier()
	nm, err := notification.NewNotificationManager(
		notification.WithNotifier(notification.EmailSystem, notifier),
		notification.WithAllTemplates(),
	)
	require.NoError(t, err)

	repo := NewInMemDeviceRepository()
	tokenService := verification.NewService(verification.NewInMemTokenRepository())
	allOpts := append([]DeviceServiceOption{WithNotificationManager(nm)}, opts...)
	service := NewDeviceService(repo, tokenService, testBaseURL, allOpts...)

	return &testEnv{
		repo:         repo,
		tokenService: tokenService,
		service:      service,
		notifier:     notifier,
	}
}

func testDescriptor() fingerprint.Descriptor {
	return fingerprint.Generate(fingerprint.Signals{
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Language:         "en-US",
		ScreenResolution: "1920x1080",
	})
}

func TestCheckDeviceNewDevice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()

	result, err := env.service.CheckDevice(ctx, userID, "alice@example.com", testDescriptor(), "Sweden")
	require.NoError(t, err)
	assert.True(t, result.NeedsVerification)
	require.NotEqual(t, uuid.Nil, result.DeviceID)

	dev, err := env.repo.GetDeviceByID(ctx, result.DeviceID)
	require.NoError(t, err)
	assert.False(t, dev.Verified)
	assert.Equal(t, "Chrome on Windows", dev.DisplayName)
	assert.Equal(t, "Sweden", dev.Region)
	require.NotNil(t, dev.TokenString)

	require.Equal(t, 1, env.notifier.SentCount())
	sent, ok := env.notifier.LastSent()
	require.True(t, ok)
	assert.Equal(t, notification.DeviceVerificationNotice, sent.Notice)
	assert.Equal(t, "alice@example.com", sent.Data.To)
	assert.Contains(t, sent.Data.Data["ApproveLink"], "/auth/approve-device?token=")
	assert.Contains(t, sent.Data.Data["SecureLink"], "/devices/secure?token=")

	events := env.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventNewDeviceDetected, events[0].EventType)
}

func TestCheckDevicePendingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()
	desc := testDescriptor()

	first, err := env.service.CheckDevice(ctx, userID, "bob@example.com", desc, "")
	require.NoError(t, err)

	second, err := env.service.CheckDevice(ctx, userID, "bob@example.com", desc, "")
	require.NoError(t, err)
	assert.True(t, second.NeedsVerification)
	assert.Equal(t, first.DeviceID, second.DeviceID)

	// No second email while a token is still live.
	assert.Equal(t, 1, env.notifier.SentCount())
}

func TestCheckDeviceRemintsWhenSiblingInvalidatedToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()

	descA := testDescriptor()
	descB := fingerprint.Generate(fingerprint.Signals{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})

	resultA, err := env.service.CheckDevice(ctx, userID, "carol@example.com", descA, "")
	require.NoError(t, err)

	// Checking in from a second device issues a new device token, which
	// deletes device A's unused token row.
	_, err = env.service.CheckDevice(ctx, userID, "carol@example.com", descB, "")
	require.NoError(t, err)

	devA, err := env.repo.GetDeviceByID(ctx, resultA.DeviceID)
	require.NoError(t, err)
	require.NotNil(t, devA.TokenString)
	_, err = env.tokenService.Consume(ctx, *devA.TokenString)
	require.ErrorIs(t, err, verification.ErrTokenNotFound)

	// A retry on device A must detect the dead cached token and remint
	// rather than claim an email is already pending.
	retryA, err := env.service.CheckDevice(ctx, userID, "carol@example.com", descA, "")
	require.NoError(t, err)
	assert.True(t, retryA.NeedsVerification)
	assert.Equal(t, resultA.DeviceID, retryA.DeviceID)
	assert.Equal(t, "verification email sent", retryA.Message)
	assert.Equal(t, 3, env.notifier.SentCount())

	devA, err = env.repo.GetDeviceByID(ctx, resultA.DeviceID)
	require.NoError(t, err)
	require.NotNil(t, devA.TokenString)
	_, err = env.tokenService.Consume(ctx, *devA.TokenString)
	assert.NoError(t, err)
}

func TestCheckDeviceRemintsAfterTokenExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	currentTime := now
	nowFn := func() time.Time { return currentTime }

	notifier := notification.NewMockNotifier()
	nm, err := notification.NewNotificationManager(
		notification.WithNotifier(notification.EmailSystem, notifier),
		notification.WithAllTemplates(),
	)
	require.NoError(t, err)

	repo := NewInMemDeviceRepository()
	tokenService := verification.NewService(verification.NewInMemTokenRepository(), verification.WithNow(nowFn))
	service := NewDeviceService(repo, tokenService, testBaseURL,
		WithNotificationManager(nm),
		WithNow(nowFn),
	)

	userID := uuid.New()
	desc := testDescriptor()

	first, err := service.CheckDevice(ctx, userID, "carol@example.com", desc, "")
	require.NoError(t, err)

	currentTime = now.Add(31 * time.Minute)
	second, err := service.CheckDevice(ctx, userID, "carol@example.com", desc, "")
	require.NoError(t, err)
	assert.True(t, second.NeedsVerification)
	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, 2, notifier.SentCount())
}

func TestCheckDeviceVerifiedDevicePasses(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()
	desc := testDescriptor()

	result, err := env.service.CheckDevice(ctx, userID, "dave@example.com", desc, "")
	require.NoError(t, err)

	dev, err := env.repo.GetDeviceByID(ctx, result.DeviceID)
	require.NoError(t, err)
	require.NoError(t, env.service.ApproveDevice(ctx, dev))

	again, err := env.service.CheckDevice(ctx, userID, "dave@example.com", desc, "")
	require.NoError(t, err)
	assert.False(t, again.NeedsVerification)
	assert.Equal(t, result.DeviceID, again.DeviceID)

	dev, err = env.repo.GetDeviceByID(ctx, result.DeviceID)
	require.NoError(t, err)
	assert.True(t, dev.Verified)
	assert.True(t, dev.IsCurrent)
	assert.Nil(t, dev.TokenString)
}

func TestCheckDeviceRateLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		err := env.repo.RecordSecurityEvent(ctx, SecurityEvent{
			ID:        uuid.New(),
			UserID:    userID,
			EventType: EventNewDeviceDetected,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	_, err := env.service.CheckDevice(ctx, userID, "erin@example.com", testDescriptor(), "")
	assert.ErrorIs(t, err, ErrRateLimited)

	// No device row and no email on the blocked attempt.
	devices, err := env.repo.FindDevicesByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.Equal(t, 0, env.notifier.SentCount())

	var limitEvents int
	for _, event := range env.repo.Events() {
		if event.EventType == EventRateLimitExceeded {
			limitEvents++
		}
	}
	assert.Equal(t, 1, limitEvents)
}

func TestCheckDeviceRateLimitWindowSlides(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()
	now := time.Now().UTC()

	// Old events outside the trailing hour do not count.
	for i := 0; i < 5; i++ {
		err := env.repo.RecordSecurityEvent(ctx, SecurityEvent{
			ID:        uuid.New(),
			UserID:    userID,
			EventType: EventNewDeviceDetected,
			CreatedAt: now.Add(-2 * time.Hour),
		})
		require.NoError(t, err)
	}

	result, err := env.service.CheckDevice(ctx, userID, "frank@example.com", testDescriptor(), "")
	require.NoError(t, err)
	assert.True(t, result.NeedsVerification)
}

func TestCheckDeviceRateLimitPerUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	limitedUser := uuid.New()
	otherUser := uuid.New()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		err := env.repo.RecordSecurityEvent(ctx, SecurityEvent{
			ID:        uuid.New(),
			UserID:    limitedUser,
			EventType: EventNewDeviceDetected,
			CreatedAt: now,
		})
		require.NoError(t, err)
	}

	_, err := env.service.CheckDevice(ctx, limitedUser, "grace@example.com", testDescriptor(), "")
	assert.ErrorIs(t, err, ErrRateLimited)

	result, err := env.service.CheckDevice(ctx, otherUser, "heidi@example.com", testDescriptor(), "")
	require.NoError(t, err)
	assert.True(t, result.NeedsVerification)
}

func TestRevokeAllDevices(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()

	descA := testDescriptor()
	descB := fingerprint.Generate(fingerprint.Signals{UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"})

	resA, err := env.service.CheckDevice(ctx, userID, "ivan@example.com", descA, "")
	require.NoError(t, err)
	resB, err := env.service.CheckDevice(ctx, userID, "ivan@example.com", descB, "")
	require.NoError(t, err)

	devA, err := env.repo.GetDeviceByID(ctx, resA.DeviceID)
	require.NoError(t, err)
	require.NoError(t, env.service.ApproveDevice(ctx, devA))

	revoked, err := env.service.RevokeAllDevices(ctx, userID, descA.Hash)
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)

	for _, id := range []uuid.UUID{resA.DeviceID, resB.DeviceID} {
		dev, err := env.repo.GetDeviceByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, dev.Verified)
		assert.False(t, dev.IsCurrent)
		assert.Nil(t, dev.TokenString)
	}

	var secured int
	for _, event := range env.repo.Events() {
		if event.EventType == EventAccountSecured {
			secured++
		}
	}
	assert.Equal(t, 1, secured)
}

func TestSendFailureDoesNotFailCheck(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.notifier.FailWith = assert.AnError

	result, err := env.service.CheckDevice(ctx, uuid.New(), "judy@example.com", testDescriptor(), "")
	require.NoError(t, err)
	assert.True(t, result.NeedsVerification)
}
