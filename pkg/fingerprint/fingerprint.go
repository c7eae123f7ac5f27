package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// delimiter joins fingerprint signals. Multi-character so it cannot collide
// with any value a browser reports.
const delimiter = "|#|"

// Signals contains the raw environment signals collected from a browser or
// device. Any field may be empty when the client could not obtain it; empty
// signals are omitted from the hash rather than replaced with a placeholder.
type Signals struct {
	UserAgent           string
	Language            string
	Platform            string
	ScreenResolution    string
	ColorDepth          string
	TimezoneOffset      string
	CanvasHash          string
	WebGLRenderer       string
	HardwareConcurrency string
	DeviceMemory        string

	// Timezone is the resolved IANA timezone name. It feeds region
	// derivation for display, not the hash itself.
	Timezone string
}

// DeviceType classifies the form factor of a device.
type DeviceType string

const (
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeTablet  DeviceType = "tablet"
)

// Descriptor is the structured output of fingerprint generation: a stable
// hash plus human-readable classification fields used for display in
// security notices.
type Descriptor struct {
	Hash             string     `json:"hash"`
	Browser          string     `json:"browser"`
	BrowserVersion   string     `json:"browser_version"`
	OS               string     `json:"os"`
	OSVersion        string     `json:"os_version"`
	DeviceType       DeviceType `json:"device_type"`
	ScreenResolution string     `json:"screen_resolution"`
}

// DisplayName returns a human-readable composite like "Chrome on Windows"
// suitable for security notification emails.
func (d Descriptor) DisplayName() string {
	browser := d.Browser
	if browser == "" {
		browser = "Unknown browser"
	}
	os := d.OS
	if os == "" {
		os = "unknown device"
	}
	return browser + " on " + os
}

// Generate derives a Descriptor from the provided signals. The hash is a
// SHA-256 over a fixed ordered list of signals joined with a multi-character
// delimiter; missing signals contribute nothing. Generate never fails: the
// worst case is a lower-entropy but still-present fingerprint.
func Generate(signals Signals) Descriptor {
	ordered := []string{
		signals.UserAgent,
		signals.Language,
		signals.Platform,
		signals.ScreenResolution,
		signals.ColorDepth,
		signals.TimezoneOffset,
		signals.CanvasHash,
		signals.WebGLRenderer,
		signals.HardwareConcurrency,
		signals.DeviceMemory,
	}

	present := make([]string, 0, len(ordered))
	for _, signal := range ordered {
		if signal != "" {
			present = append(present, signal)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(present, delimiter)))

	browser, browserVersion := classifyBrowser(signals.UserAgent)
	os, osVersion := classifyOS(signals.UserAgent)

	return Descriptor{
		Hash:             hex.EncodeToString(hash[:]),
		Browser:          browser,
		BrowserVersion:   browserVersion,
		OS:               os,
		OSVersion:        osVersion,
		DeviceType:       classifyDeviceType(signals.UserAgent),
		ScreenResolution: signals.ScreenResolution,
	}
}

// FromRequest extracts fingerprint signals from an HTTP request for clients
// that do not submit a descriptor themselves. Browser-only signals such as
// the canvas hash are read from extension headers set by the client.
func FromRequest(r *http.Request) Signals {
	return Signals{
		UserAgent:           r.UserAgent(),
		Language:            r.Header.Get("Accept-Language"),
		Platform:            r.Header.Get("Sec-CH-UA-Platform"),
		ScreenResolution:    r.Header.Get("X-Screen-Resolution"),
		ColorDepth:          r.Header.Get("X-Color-Depth"),
		TimezoneOffset:      r.Header.Get("X-Timezone-Offset"),
		CanvasHash:          r.Header.Get("X-Canvas-Hash"),
		WebGLRenderer:       r.Header.Get("X-WebGL-Renderer"),
		HardwareConcurrency: r.Header.Get("X-Hardware-Concurrency"),
		DeviceMemory:        r.Header.Get("X-Device-Memory"),
		Timezone:            r.Header.Get("X-Timezone"),
	}
}

// browserRule matches a user agent keyword to a browser name. Order matters:
// Chrome's user agent contains "Safari", Edge's contains "Chrome".
type browserRule struct {
	keyword string
	name    string
}

var browserRules = []browserRule{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"samsungbrowser/", "Samsung Internet"},
	{"firefox/", "Firefox"},
	{"chrome/", "Chrome"},
	{"crios/", "Chrome"},
	{"fxios/", "Firefox"},
	{"safari/", "Safari"},
}

func classifyBrowser(userAgent string) (string, string) {
	lower := strings.ToLower(userAgent)
	for _, rule := range browserRules {
		idx := strings.Index(lower, rule.keyword)
		if idx < 0 {
			continue
		}
		if rule.name == "Safari" && strings.Contains(lower, "version/") {
			return "Safari", versionToken(lower, "version/")
		}
		return rule.name, versionToken(lower, rule.keyword)
	}
	return "", ""
}

// versionToken returns the major version following the given keyword.
func versionToken(lowerUA, keyword string) string {
	idx := strings.Index(lowerUA, keyword)
	if idx < 0 {
		return ""
	}
	rest := lowerUA[idx+len(keyword):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if end >= 0 {
		rest = rest[:end]
	}
	if dot := strings.Index(rest, "."); dot >= 0 {
		rest = rest[:dot]
	}
	return rest
}

func classifyOS(userAgent string) (string, string) {
	lower := strings.ToLower(userAgent)
	switch {
	case strings.Contains(lower, "windows nt 10.0"):
		return "Windows", "10"
	case strings.Contains(lower, "windows nt 6.3"):
		return "Windows", "8.1"
	case strings.Contains(lower, "windows"):
		return "Windows", ""
	case strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad") || strings.Contains(lower, "ipod"):
		return "iOS", ""
	case strings.Contains(lower, "mac os x"):
		return "macOS", ""
	case strings.Contains(lower, "android"):
		return "Android", versionToken(lower, "android ")
	case strings.Contains(lower, "cros"):
		return "ChromeOS", ""
	case strings.Contains(lower, "linux"):
		return "Linux", ""
	}
	return "", ""
}

var tabletKeywords = []string{"ipad", "tablet", "kindle", "silk", "playbook"}

var mobileKeywords = []string{
	"iphone", "ipod", "windows phone", "blackberry",
	"opera mini", "opera mobi", "mobile",
}

func classifyDeviceType(userAgent string) DeviceType {
	lower := strings.ToLower(userAgent)
	for _, keyword := range tabletKeywords {
		if strings.Contains(lower, keyword) {
			return DeviceTypeTablet
		}
	}
	// Android tablets report "Android" without "Mobile".
	if strings.Contains(lower, "android") && !strings.Contains(lower, "mobile") {
		return DeviceTypeTablet
	}
	for _, keyword := range mobileKeywords {
		if strings.Contains(lower, keyword) {
			return DeviceTypeMobile
		}
	}
	return DeviceTypeDesktop
}
