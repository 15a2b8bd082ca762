package account

import "errors"

var (
	// ErrAccountNotFound is returned when no account matches the lookup
	ErrAccountNotFound = errors.New("account not found")

	// ErrTokenNotFound is returned when no account holds the presented
	// secret, including the case where it was already consumed
	ErrTokenNotFound = errors.New("token not found")

	// ErrDuplicateEmail is returned when creating an account with an
	// address that is already registered
	ErrDuplicateEmail = errors.New("email already registered")
)
