package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariMacUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	safariIphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	edgeWindowsUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	ipadUA          = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
)

func defaultSignals() Signals {
	return Signals{
		UserAgent:        chromeWindowsUA,
		Language:         "en-US",
		Platform:         "Win32",
		ScreenResolution: "1920x1080",
		ColorDepth:       "24",
		TimezoneOffset:   "-300",
		CanvasHash:       "abc123",
	}
}

func TestGenerateDeterministic(t *testing.T) {
	first := Generate(defaultSignals())
	second := Generate(defaultSignals())
	assert.Equal(t, first.Hash, second.Hash)
	require.Len(t, first.Hash, 64)
}

func TestGenerateSensitiveToEachSignal(t *testing.T) {
	base := Generate(defaultSignals()).Hash

	mutations := []func(*Signals){
		func(s *Signals) { s.UserAgent = firefoxLinuxUA },
		func(s *Signals) { s.Language = "de-DE" },
		func(s *Signals) { s.Platform = "MacIntel" },
		func(s *Signals) { s.ScreenResolution = "2560x1440" },
		func(s *Signals) { s.ColorDepth = "30" },
		func(s *Signals) { s.TimezoneOffset = "60" },
		func(s *Signals) { s.CanvasHash = "def456" },
	}

	for i, mutate := range mutations {
		signals := defaultSignals()
		mutate(&signals)
		assert.NotEqual(t, base, Generate(signals).Hash, "mutation %d should change the hash", i)
	}
}

func TestGenerateWithMissingSignals(t *testing.T) {
	signals := defaultSignals()
	signals.CanvasHash = ""
	signals.ColorDepth = ""

	desc := Generate(signals)
	require.Len(t, desc.Hash, 64)
	assert.NotEqual(t, Generate(defaultSignals()).Hash, desc.Hash)
}

func TestGenerateEmptySignals(t *testing.T) {
	desc := Generate(Signals{})
	require.Len(t, desc.Hash, 64)
	assert.Equal(t, "Unknown browser on unknown device", desc.DisplayName())
}

func TestClassifyBrowser(t *testing.T) {
	tests := []struct {
		ua      string
		browser string
	}{
		{chromeWindowsUA, "Chrome"},
		{safariMacUA, "Safari"},
		{edgeWindowsUA, "Edge"},
		{firefoxLinuxUA, "Firefox"},
	}
	for _, tc := range tests {
		desc := Generate(Signals{UserAgent: tc.ua})
		assert.Equal(t, tc.browser, desc.Browser, "ua: %s", tc.ua)
	}
}

func TestClassifyOSAndDeviceType(t *testing.T) {
	tests := []struct {
		ua         string
		os         string
		deviceType DeviceType
	}{
		{chromeWindowsUA, "Windows", DeviceTypeDesktop},
		{safariMacUA, "macOS", DeviceTypeDesktop},
		{safariIphoneUA, "iOS", DeviceTypeMobile},
		{firefoxLinuxUA, "Linux", DeviceTypeDesktop},
		{ipadUA, "iOS", DeviceTypeTablet},
	}
	for _, tc := range tests {
		desc := Generate(Signals{UserAgent: tc.ua})
		assert.Equal(t, tc.os, desc.OS, "ua: %s", tc.ua)
		assert.Equal(t, tc.deviceType, desc.DeviceType, "ua: %s", tc.ua)
	}
}

func TestDisplayName(t *testing.T) {
	desc := Generate(Signals{UserAgent: chromeWindowsUA})
	assert.Equal(t, "Chrome on Windows", desc.DisplayName())
}

func TestRegionFromTimezone(t *testing.T) {
	tests := []struct {
		timezone string
		region   string
	}{
		{"Europe/Stockholm", "Sweden"},
		{"America/New_York", "United States (Eastern)"},
		{"Europe/Nowhere_Special", "Europe"},
		{"", "Unknown"},
		{"NotATimezone", "Unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.region, RegionFromTimezone(tc.timezone), "timezone: %s", tc.timezone)
	}
}
