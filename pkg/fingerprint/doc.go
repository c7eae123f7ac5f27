// Package fingerprint derives stable, privacy-preserving device identifiers
// from ambient browser and runtime signals.
//
// A fingerprint is a SHA-256 hash over a fixed ordered list of environment
// signals (user agent, language, platform, screen resolution, color depth,
// timezone offset, canvas hash, WebGL renderer, CPU count, device memory).
// Signals the client could not obtain are omitted rather than substituted,
// so generation never fails; it only loses entropy.
//
// The package also classifies the user agent into browser, OS and device
// type for display in security notices, and derives an approximate region
// from the IANA timezone without any IP-based lookup.
package fingerprint
