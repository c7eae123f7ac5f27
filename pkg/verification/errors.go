package verification

import "errors"

var (
	// ErrTokenNotFound is returned when no token matches the provided string
	ErrTokenNotFound = errors.New("verification token not found")

	// ErrTokenAlreadyUsed is returned when a token has already been consumed
	ErrTokenAlreadyUsed = errors.New("verification token has already been used")

	// ErrTokenExpired is returned when a token is past its expiry
	ErrTokenExpired = errors.New("verification token has expired")

	// ErrInvalidPurpose is returned when a purpose string is not recognized
	ErrInvalidPurpose = errors.New("invalid token purpose")
)
