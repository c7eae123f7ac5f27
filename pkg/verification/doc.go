// Package verification manages single-use, time-bound verification tokens
// shared across three purposes: device approval, signup email confirmation,
// and password recovery.
//
// Invariants enforced here:
//   - token strings are cryptographically random (256 bits of entropy)
//   - a token is consumed at most once; the used_at transition is a
//     storage-level conditional update, so concurrent consumers race safely
//   - expired tokens are rejected lazily at consumption time, regardless of
//     used state; there is no background sweep
//   - issuing a token deletes any prior unused token of the same
//     (user, purpose) pair
package verification
