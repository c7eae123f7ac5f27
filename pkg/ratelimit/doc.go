// Package ratelimit provides transport-level request limiting for the
// unauthenticated endpoints. It complements the per-user new-device event
// limit enforced inside the device service, which caps verification email
// volume regardless of source IP.
package ratelimit
