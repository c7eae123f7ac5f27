package recovery

import "errors"

var (
	ErrInvalidToken = errors.New("invalid or already used reset token")
	ErrTokenExpired = errors.New("reset token expired")
	ErrWeakPassword = errors.New("password does not meet requirements")
)
