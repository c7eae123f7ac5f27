// Package session issues and verifies the HS256 session tokens granted
// once a user has authenticated from a trusted device. Tokens travel in an
// HttpOnly cookie or an Authorization header and carry the user's role for
// request-time authorization.
package session
