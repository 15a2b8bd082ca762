package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-signup/pkg/account"
	"github.com/tendant/simple-signup/pkg/notification"
	"github.com/tendant/simple-signup/pkg/ratelimit"
	"github.com/tendant/simple-signup/pkg/tokengen"
)

// Service orchestrates issuance and validation of email verification secrets.
type Service struct {
	repo                account.Repository
	limiter             *ratelimit.Limiter
	generator           *tokengen.Generator
	notificationManager *notification.Manager
	baseURL             string
	now                 func() time.Time
}

// ServiceOption defines configuration options
type ServiceOption func(*Service)

// WithNotificationManager sets the manager used to deliver verification
// emails. Without one, issuance still succeeds and the send is skipped.
func WithNotificationManager(manager *notification.Manager) ServiceOption {
	return func(s *Service) {
		s.notificationManager = manager
	}
}

// WithBaseURL sets the public base URL embedded in verification links
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

// NewService creates a new email verification service
func NewService(repo account.Repository, limiter *ratelimit.Limiter, generator *tokengen.Generator, opts ...ServiceOption) *Service {
	service := &Service{
		repo:      repo,
		limiter:   limiter,
		generator: generator,
		baseURL:   "http://localhost:4000",
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Start issues a verification secret for the account and emails the
// verification link. A new secret supersedes any previous one. Resend goes
// through the same path, so the cooldown covers both.
//
// The cooldown is checked before anything else touches state: a denied
// request issues no secret and sends no mail. A denied request returns
// *ratelimit.RateLimitedError carrying the remaining wait.
func (s *Service) Start(ctx context.Context, userID uuid.UUID, email string) error {
	acct, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		slog.Error("Failed to get account", "user_id", userID, "error", err)
		return ErrAccountNotFound
	}

	if acct.Verified {
		slog.Info("Email already verified", "user_id", userID)
		return ErrAlreadyVerified
	}

	if email == "" {
		email = acct.Email
	}

	decision, err := s.limiter.TryAcquire(ctx, userID.String(), ratelimit.ActionVerifySend)
	if err != nil {
		slog.Error("Cooldown check failed", "user_id", userID, "error", err)
		return fmt.Errorf("failed to check issuance cooldown: %w", err)
	}
	if !decision.Allowed {
		slog.Warn("Verification send rate limited", "user_id", userID, "retry_after", decision.RetryAfter)
		return &ratelimit.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	token, expiresAt, err := s.generator.Generate(tokengen.PurposeVerification)
	if err != nil {
		return err
	}

	if err := s.repo.SetVerificationToken(ctx, userID, token, expiresAt); err != nil {
		slog.Error("Failed to store verification token", "user_id", userID, "error", err)
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	verificationLink := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)

	if err := s.sendVerificationEmail(email, verificationLink, expiresAt); err != nil {
		// Best effort: the secret stays valid, the user can resend
		slog.Error("Failed to send verification email", "user_id", userID, "error", err)
	}

	slog.Info("Verification token issued", "user_id", userID, "expires_at", expiresAt)
	return nil
}

// Validate consumes the secret and flips the account to verified. The
// consume is atomic, so two concurrent validations of the same secret yield
// exactly one success; the loser and every later attempt see
// ErrTokenNotFound.
//
// An expired secret is consumed as well, but the account stays pending so a
// resend can issue a fresh one.
func (s *Service) Validate(ctx context.Context, token string) error {
	acct, err := s.repo.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, account.ErrTokenNotFound) {
			slog.Warn("Verification token not found")
			return ErrTokenNotFound
		}
		slog.Error("Failed to consume verification token", "error", err)
		return fmt.Errorf("failed to consume verification token: %w", err)
	}

	if acct.TokenExpiresAt == nil || !s.now().UTC().Before(*acct.TokenExpiresAt) {
		slog.Warn("Verification token expired", "user_id", acct.ID)
		return ErrTokenExpired
	}

	if err := s.repo.MarkVerified(ctx, acct.ID); err != nil {
		slog.Error("Failed to mark account verified", "user_id", acct.ID, "error", err)
		return fmt.Errorf("failed to verify email: %w", err)
	}

	slog.Info("Email verified", "user_id", acct.ID)
	return nil
}

// Status returns whether the account's email has been verified
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (bool, error) {
	acct, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		slog.Error("Failed to get account", "user_id", userID, "error", err)
		return false, ErrAccountNotFound
	}
	return acct.Verified, nil
}

func (s *Service) sendVerificationEmail(email, verificationLink string, expiresAt time.Time) error {
	if s.notificationManager == nil {
		slog.Warn("Notification manager not configured, skipping email send")
		return nil
	}

	minutes := int(expiresAt.Sub(s.now().UTC()).Round(time.Minute).Minutes())
	notificationData := notification.NotificationData{
		To: email,
		Data: map[string]string{
			"VerificationLink": verificationLink,
			"ExpiryMinutes":    fmt.Sprintf("%d", minutes),
		},
	}

	if err := s.notificationManager.Send(notification.EmailVerificationNotice, notificationData); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
