package credentials

import "errors"

// ErrPasswordTooShort is returned when a new password is below the policy
// minimum; user-correctable.
var ErrPasswordTooShort = errors.New("password does not meet the minimum length")

// MinPasswordLength is the floor enforced regardless of configuration.
const MinPasswordLength = 6

// Policy defines the requirements for new passwords. Collaborating
// deployments may raise MinLength; it is never lowered below the floor.
type Policy struct {
	MinLength int
}

// DefaultPolicy returns the default password policy
func DefaultPolicy() *Policy {
	return &Policy{
		MinLength: MinPasswordLength,
	}
}

// Check validates a candidate password against the policy
func (p *Policy) Check(password string) error {
	minLength := p.MinLength
	if minLength < MinPasswordLength {
		minLength = MinPasswordLength
	}

	if len(password) < minLength {
		return ErrPasswordTooShort
	}
	return nil
}
