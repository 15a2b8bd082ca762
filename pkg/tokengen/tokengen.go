package tokengen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Purpose tags a secret so a token issued for one flow can never be
// presented to the other.
type Purpose string

const (
	// PurposeVerification marks email verification secrets
	PurposeVerification Purpose = "verify"

	// PurposeRecovery marks password recovery secrets
	PurposeRecovery Purpose = "reset"
)

const (
	// tokenBytes is 256 bits of entropy before encoding
	tokenBytes = 32

	// DefaultTTL is the fixed validity window for issued secrets
	DefaultTTL = 15 * time.Minute
)

// Generator issues opaque single-purpose secrets with a fixed expiry.
// Secrets are looked up by exact match in the account store; they carry
// no embedded claims.
type Generator struct {
	ttl time.Duration
	now func() time.Time
}

// GeneratorOption defines configuration options
type GeneratorOption func(*Generator)

// WithTTL overrides the token validity window
func WithTTL(ttl time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.ttl = ttl
	}
}

// WithClock overrides the time source, used by tests to simulate expiry
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a new secret generator
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		ttl: DefaultTTL,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate returns a cryptographically secure random token for the given
// purpose and the instant it stops being valid.
func (g *Generator) Generate(purpose Purpose) (string, time.Time, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	token := fmt.Sprintf("%s_%s", purpose, base64.RawURLEncoding.EncodeToString(b))
	return token, g.now().UTC().Add(g.ttl), nil
}
