package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-signup/pkg/account"
	"github.com/tendant/simple-signup/pkg/credentials"
	"github.com/tendant/simple-signup/pkg/notification"
	"github.com/tendant/simple-signup/pkg/ratelimit"
	"github.com/tendant/simple-signup/pkg/tokengen"
)

// Service orchestrates issuance of password reset secrets and the
// credential change they authorize.
type Service struct {
	repo                account.Repository
	credentialManager   *credentials.Manager
	limiter             *ratelimit.Limiter
	generator           *tokengen.Generator
	notificationManager *notification.Manager
	baseURL             string
	now                 func() time.Time
}

// ServiceOption defines configuration options
type ServiceOption func(*Service)

// WithNotificationManager sets the manager used to deliver reset emails.
// Without one, issuance still succeeds and the send is skipped.
func WithNotificationManager(manager *notification.Manager) ServiceOption {
	return func(s *Service) {
		s.notificationManager = manager
	}
}

// WithBaseURL sets the public base URL embedded in reset links
func WithBaseURL(baseURL string) ServiceOption {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithClock overrides the time source, used by tests to simulate expiry
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new password recovery service
func NewService(repo account.Repository, credentialManager *credentials.Manager, limiter *ratelimit.Limiter, generator *tokengen.Generator, opts ...ServiceOption) *Service {
	service := &Service{
		repo:              repo,
		credentialManager: credentialManager,
		limiter:           limiter,
		generator:         generator,
		baseURL:           "http://localhost:4000",
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Request issues a reset secret for the address and emails the reset link.
// An unknown address returns nil with no side effects, and a cooldown denial
// returns nil too, so the response never reveals whether the address exists.
// Only a store failure surfaces as an error; the caller fails closed.
func (s *Service) Request(ctx context.Context, email string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			slog.Info("Password reset requested for unknown address")
			return nil
		}
		slog.Error("Failed to look up account by email", "error", err)
		return fmt.Errorf("failed to look up account: %w", err)
	}

	decision, err := s.limiter.TryAcquire(ctx, acct.ID.String(), ratelimit.ActionRecoverySend)
	if err != nil {
		slog.Error("Cooldown check failed", "user_id", acct.ID, "error", err)
		return fmt.Errorf("failed to check issuance cooldown: %w", err)
	}
	if !decision.Allowed {
		slog.Warn("Password reset rate limited", "user_id", acct.ID, "retry_after", decision.RetryAfter)
		return nil
	}

	token, expiresAt, err := s.generator.Generate(tokengen.PurposeRecovery)
	if err != nil {
		return err
	}

	if err := s.repo.SetResetToken(ctx, acct.ID, token, expiresAt); err != nil {
		slog.Error("Failed to store reset token", "user_id", acct.ID, "error", err)
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)

	if err := s.sendResetEmail(acct.Email, resetLink, expiresAt); err != nil {
		// Best effort: the secret stays valid, the user can request again
		slog.Error("Failed to send password reset email", "user_id", acct.ID, "error", err)
	}

	slog.Info("Reset token issued", "user_id", acct.ID, "expires_at", expiresAt)
	return nil
}

// Apply changes the password authorized by the secret and invalidates it.
// Outcomes, in order of checking:
//   - unknown or already-consumed secret: ErrTokenNotFound
//   - expired secret: ErrTokenExpired, and the secret is cleared so the same
//     link cannot be retried
//   - password below policy: credentials.ErrPasswordTooShort, secret left
//     valid so the user can retry with the same link
//   - credential store failure: error, secret left valid for retry
//
// The final clear is compare-and-clear, so two concurrent applies of the
// same secret yield exactly one success.
func (s *Service) Apply(ctx context.Context, token, newPassword string) error {
	acct, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, account.ErrTokenNotFound) {
			slog.Warn("Reset token not found")
			return ErrTokenNotFound
		}
		slog.Error("Failed to look up reset token", "error", err)
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	if acct.ResetTokenExpiresAt == nil || !s.now().UTC().Before(*acct.ResetTokenExpiresAt) {
		// A stale secret must never stay usable past this check
		if err := s.repo.ClearResetToken(ctx, acct.ID, token); err != nil && !errors.Is(err, account.ErrTokenNotFound) {
			slog.Error("Failed to clear expired reset token", "user_id", acct.ID, "error", err)
		}
		slog.Warn("Reset token expired", "user_id", acct.ID)
		return ErrTokenExpired
	}

	if err := s.credentialManager.SetPassword(ctx, acct.ID, newPassword); err != nil {
		// Secret stays valid so the same link can be retried
		slog.Warn("Password change rejected", "user_id", acct.ID, "error", err)
		return err
	}

	if err := s.repo.ClearResetToken(ctx, acct.ID, token); err != nil {
		if errors.Is(err, account.ErrTokenNotFound) {
			// A concurrent apply won the compare-and-clear
			return ErrTokenNotFound
		}
		slog.Error("Failed to clear reset token", "user_id", acct.ID, "error", err)
		return fmt.Errorf("failed to clear reset token: %w", err)
	}

	slog.Info("Password reset applied", "user_id", acct.ID)
	return nil
}

func (s *Service) sendResetEmail(email, resetLink string, expiresAt time.Time) error {
	if s.notificationManager == nil {
		slog.Warn("Notification manager not configured, skipping email send")
		return nil
	}

	minutes := int(expiresAt.Sub(s.now().UTC()).Round(time.Minute).Minutes())
	notificationData := notification.NotificationData{
		To: email,
		Data: map[string]string{
			"ResetLink":     resetLink,
			"ExpiryMinutes": fmt.Sprintf("%d", minutes),
		},
	}

	if err := s.notificationManager.Send(notification.PasswordResetNotice, notificationData); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
