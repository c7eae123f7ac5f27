// Package recovery implements the forgot-password flow. Reset requests are
// answered identically whether or not an account exists, and a reset link
// is valid for a single use within its expiry window.
package recovery
