// Package notification delivers out-of-band notices: the new-device
// security email, signup confirmation, and password reset.
//
// A NotificationManager maps notice types to per-system templates and
// routes each send through the registered Notifier for that system. The
// built-in EmailNotifier speaks SMTP via wneessen/go-mail; tests use
// MockNotifier. Delivery failures are the caller's to log and never roll
// back the state change that triggered the notice.
package notification
