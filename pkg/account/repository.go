package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// VerificationState is the explicit verification lifecycle of an account.
// It moves unverified -> pending -> verified; verified is terminal.
type VerificationState string

const (
	StateUnverified VerificationState = "unverified"
	StatePending    VerificationState = "pending"
	StateVerified   VerificationState = "verified"
)

// Account is the subset of the user record this service reads and patches.
// Token/expiry pairs are always set and cleared together.
type Account struct {
	ID                  uuid.UUID          `json:"id"`
	Email               string             `json:"email"`
	VerificationState   VerificationState  `json:"verification_state"`
	Verified            bool               `json:"is_verified"`
	VerificationToken   *string            `json:"verification_token,omitempty"`
	TokenExpiresAt      *time.Time         `json:"token_expires_at,omitempty"`
	ResetToken          *string            `json:"reset_token,omitempty"`
	ResetTokenExpiresAt *time.Time         `json:"reset_token_expires_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
}

// Repository defines the account store operations used by the verification
// and recovery flows. Consume and compare-and-clear operations are the only
// ones with at-most-once semantics; everything else is safe to retry.
type Repository interface {
	// Create inserts a new unverified account
	Create(ctx context.Context, email string) (*Account, error)

	// GetByID retrieves an account by its id
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByEmail retrieves an account by its contact address
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// SetVerificationToken stores a verification secret and its expiry,
	// replacing any previous one, and moves an unverified account to
	// pending. Reset token fields are not touched.
	SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error

	// ConsumeVerificationToken looks up the account owning the secret and
	// atomically clears the secret and its expiry. The returned snapshot
	// carries the expiry the secret had; the caller decides staleness.
	// Two concurrent consumes of the same secret yield exactly one snapshot
	// and one ErrTokenNotFound.
	ConsumeVerificationToken(ctx context.Context, token string) (*Account, error)

	// MarkVerified irreversibly flips the account to verified
	MarkVerified(ctx context.Context, userID uuid.UUID) error

	// SetResetToken stores a recovery secret and its expiry, replacing any
	// previous one. Verification fields are not touched.
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error

	// GetByResetToken retrieves the account owning the recovery secret
	// without clearing it.
	GetByResetToken(ctx context.Context, token string) (*Account, error)

	// ClearResetToken clears the recovery secret only if the stored value
	// still equals token. ErrTokenNotFound reports that another request
	// consumed or replaced it first.
	ClearResetToken(ctx context.Context, userID uuid.UUID, token string) error
}
