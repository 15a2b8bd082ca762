package verification

import "errors"

var (
	// ErrAccountNotFound is returned when the user id does not match an account
	ErrAccountNotFound = errors.New("account not found")

	// ErrAlreadyVerified is returned when the account is already verified
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrTokenNotFound is returned when the token is absent, foreign, or
	// already consumed
	ErrTokenNotFound = errors.New("verification token not found")

	// ErrTokenExpired is returned when the token exists but its validity
	// window has passed
	ErrTokenExpired = errors.New("verification token expired")
)
