package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-signup/pkg/account"
	"github.com/tendant/simple-signup/pkg/notification"
	"github.com/tendant/simple-signup/pkg/ratelimit"
	"github.com/tendant/simple-signup/pkg/tokengen"
)

type fixture struct {
	repo    *account.FileRepository
	mock    *notification.MockNotifier
	service *Service
	acct    *account.Account
}

// newFixture wires a service against file-backed stores with an adjustable
// clock shared by the generator, the limiter, and the service.
func newFixture(t *testing.T, now func() time.Time) *fixture {
	t.Helper()

	repo, err := account.NewFileRepository(t.TempDir())
	require.NoError(t, err)

	acct, err := repo.Create(context.Background(), "alice@example.com")
	require.NoError(t, err)

	mock := &notification.MockNotifier{}
	manager := notification.NewManager()
	manager.RegisterNotifier(notification.EmailSystem, mock)
	err = manager.RegisterNotification(notification.EmailVerificationNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Verify Your Email Address",
		Html:    "<p>{{.VerificationLink}}</p>",
	})
	require.NoError(t, err)

	limiter := ratelimit.NewLimiter(ratelimit.NewInMemAttemptStore(), ratelimit.WithClock(now))
	generator := tokengen.NewGenerator(tokengen.WithClock(now))
	service := NewService(repo, limiter, generator,
		WithNotificationManager(manager),
		WithBaseURL("https://signup.example.com"),
		WithClock(now),
	)

	return &fixture{repo: repo, mock: mock, service: service, acct: acct}
}

func storedToken(t *testing.T, repo *account.FileRepository, id uuid.UUID) string {
	t.Helper()
	acct, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, acct.VerificationToken)
	return *acct.VerificationToken
}

func TestStartAndValidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now)

	err := f.service.Start(ctx, f.acct.ID, "alice@example.com")
	require.NoError(t, err)

	acct, err := f.repo.GetByID(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatePending, acct.VerificationState)
	require.Len(t, f.mock.SentNotifications, 1)
	assert.Equal(t, "alice@example.com", f.mock.SentNotifications[0].To)

	token := storedToken(t, f.repo, f.acct.ID)

	err = f.service.Validate(ctx, token)
	require.NoError(t, err)

	acct, err = f.repo.GetByID(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.True(t, acct.Verified)
	assert.Equal(t, account.StateVerified, acct.VerificationState)
	assert.Nil(t, acct.VerificationToken)

	// Re-validation of a consumed token must never succeed
	err = f.service.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidateExpiredToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func() time.Time { return now })

	err := f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)
	first := storedToken(t, f.repo, f.acct.ID)

	// Past the 15 minute validity window
	now = now.Add(16 * time.Minute)

	err = f.service.Validate(ctx, first)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Expired consume leaves the account pending so a resend can succeed
	acct, err := f.repo.GetByID(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatePending, acct.VerificationState)
	assert.False(t, acct.Verified)
	assert.Nil(t, acct.VerificationToken)

	err = f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)
	second := storedToken(t, f.repo, f.acct.ID)
	assert.NotEqual(t, first, second)

	err = f.service.Validate(ctx, second)
	require.NoError(t, err)

	acct, err = f.repo.GetByID(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.True(t, acct.Verified)
}

func TestValidateAtExactExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func() time.Time { return now })

	err := f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)
	token := storedToken(t, f.repo, f.acct.ID)

	now = now.Add(15 * time.Minute)

	err = f.service.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestStartRateLimited(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func() time.Time { return now })

	err := f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)
	first := storedToken(t, f.repo, f.acct.ID)

	now = now.Add(10 * time.Second)

	err = f.service.Start(ctx, f.acct.ID, "")
	var rateLimited *ratelimit.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 50, rateLimited.RetryAfterSeconds())

	// Denied request has no side effects
	assert.Equal(t, first, storedToken(t, f.repo, f.acct.ID))
	assert.Len(t, f.mock.SentNotifications, 1)

	now = now.Add(51 * time.Second)

	err = f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, first, storedToken(t, f.repo, f.acct.ID))
}

func TestStartResendSupersedesToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func() time.Time { return now })

	err := f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)
	first := storedToken(t, f.repo, f.acct.ID)

	now = now.Add(61 * time.Second)

	err = f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)

	// The superseded secret is no longer usable
	err = f.service.Validate(ctx, first)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStartNotifierFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now)
	f.mock.Err = errors.New("smtp unavailable")

	err := f.service.Start(ctx, f.acct.ID, "")
	require.NoError(t, err)

	// The secret stays valid even though delivery failed
	token := storedToken(t, f.repo, f.acct.ID)
	err = f.service.Validate(ctx, token)
	require.NoError(t, err)
}

func TestStartUnknownAccount(t *testing.T) {
	f := newFixture(t, time.Now)

	err := f.service.Start(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestStartAlreadyVerified(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now)

	require.NoError(t, f.repo.MarkVerified(ctx, f.acct.ID))

	err := f.service.Start(ctx, f.acct.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestValidateGarbageToken(t *testing.T) {
	f := newFixture(t, time.Now)

	err := f.service.Validate(context.Background(), "not-a-real-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now)

	verified, err := f.service.Status(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.False(t, verified)

	require.NoError(t, f.repo.MarkVerified(ctx, f.acct.ID))

	verified, err = f.service.Status(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.True(t, verified)

	_, err = f.service.Status(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
