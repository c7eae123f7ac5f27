package iam

import "errors"

var (
	// ErrUserNotFound is returned when a user lookup misses
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user with a taken email
	ErrUserExists = errors.New("user already exists")

	// ErrProfileNotFound is returned when a profile lookup misses
	ErrProfileNotFound = errors.New("profile not found")
)
