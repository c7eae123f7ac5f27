// Package iam exposes the narrow user and profile surface the device-trust
// flows depend on: email-confirmation state, role assignment, password hash
// updates, and minimal profile creation on signup. The full user aggregate
// is owned by the main marketplace application.
package iam
