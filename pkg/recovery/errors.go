package recovery

import "errors"

var (
	// ErrTokenNotFound is returned when the token is absent, foreign, or
	// already consumed
	ErrTokenNotFound = errors.New("reset token not found")

	// ErrTokenExpired is returned when the token exists but its validity
	// window has passed
	ErrTokenExpired = errors.New("reset token expired")
)
