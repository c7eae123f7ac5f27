// Package device is the registry and verification gate for device trust.
//
// For each login the service decides, from the (user, fingerprint) pair,
// whether the login proceeds immediately (known verified device) or is held
// pending out-of-band email approval (new or unverified device). A trailing
// per-user rate limit on new-device detections runs before any device
// lookup, so the limit cannot be probed by fingerprint enumeration.
//
// Device state transitions:
//
//	[none] --checkDevice(unknown fp)--> [unverified, token=T]
//	[unverified, T] --confirm(T)------> [verified, token=nil]
//	[unverified, T] --secure(T)-------> [unverified, token=nil] (all siblings revoked)
//	[verified] --secure(any valid T)--> [unverified]            (same revoke-all)
//
// Security events are an append-only audit trail; the rate limit counts
// them but nothing else reads them for authorization.
package device
