package credentials

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Manager is the password-credential boundary consumed by the recovery
// flow: policy check, hash, store.
type Manager struct {
	store  Store
	hasher PasswordHasher
	policy *Policy
}

// ManagerOption defines configuration options
type ManagerOption func(*Manager)

// WithPolicy overrides the password policy
func WithPolicy(policy *Policy) ManagerOption {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithHasher overrides the password hasher
func WithHasher(hasher PasswordHasher) ManagerOption {
	return func(m *Manager) {
		m.hasher = hasher
	}
}

// NewManager creates a new credential manager
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		hasher: NewBcryptHasher(0),
		policy: DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetPassword validates, hashes and stores a new password for the user.
// Policy violations come back as ErrPasswordTooShort; store failures wrap
// ErrStoreUnavailable.
func (m *Manager) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if err := m.policy.Check(password); err != nil {
		return err
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := m.store.UpdatePassword(ctx, userID, hash); err != nil {
		slog.Error("Failed to update password", "user_id", userID, "error", err)
		return err
	}

	return nil
}
