package account

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary directory and repository for testing
func setupTestRepo(t *testing.T) *FileRepository {
	tempDir := filepath.Join(os.TempDir(), "account-test-"+uuid.New().String())
	err := os.MkdirAll(tempDir, 0755)
	require.NoError(t, err)

	repo, err := NewFileRepository(tempDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tempDir)
	})

	return repo
}

func TestFileRepository_Create(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		acct, err := repo.Create(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, acct.ID)
		assert.Equal(t, "alice@example.com", acct.Email)
		assert.Equal(t, StateUnverified, acct.VerificationState)
		assert.False(t, acct.Verified)
		assert.Nil(t, acct.VerificationToken)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := repo.Create(ctx, "alice@example.com")
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestFileRepository_SetVerificationToken(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, "bob@example.com")
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(15 * time.Minute)

	t.Run("MovesToPending", func(t *testing.T) {
		err := repo.SetVerificationToken(ctx, acct.ID, "verify_abc", expiresAt)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, StatePending, got.VerificationState)
		require.NotNil(t, got.VerificationToken)
		assert.Equal(t, "verify_abc", *got.VerificationToken)
	})

	t.Run("SupersedesPreviousToken", func(t *testing.T) {
		err := repo.SetVerificationToken(ctx, acct.ID, "verify_def", expiresAt)
		require.NoError(t, err)

		// old token no longer validates
		_, err = repo.ConsumeVerificationToken(ctx, "verify_abc")
		assert.ErrorIs(t, err, ErrTokenNotFound)

		got, err := repo.ConsumeVerificationToken(ctx, "verify_def")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		err := repo.SetVerificationToken(ctx, uuid.New(), "verify_xyz", expiresAt)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("LeavesResetTokenAlone", func(t *testing.T) {
		err := repo.SetResetToken(ctx, acct.ID, "reset_123", expiresAt)
		require.NoError(t, err)
		err = repo.SetVerificationToken(ctx, acct.ID, "verify_ghi", expiresAt)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ResetToken)
		assert.Equal(t, "reset_123", *got.ResetToken)
	})
}

func TestFileRepository_ConsumeVerificationToken(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, "carol@example.com")
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(15 * time.Minute)
	require.NoError(t, repo.SetVerificationToken(ctx, acct.ID, "verify_once", expiresAt))

	t.Run("ReturnsSnapshotWithExpiry", func(t *testing.T) {
		got, err := repo.ConsumeVerificationToken(ctx, "verify_once")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
		require.NotNil(t, got.TokenExpiresAt)
		assert.WithinDuration(t, expiresAt, *got.TokenExpiresAt, time.Second)
	})

	t.Run("SecondConsumeFails", func(t *testing.T) {
		_, err := repo.ConsumeVerificationToken(ctx, "verify_once")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("ClearsStoredToken", func(t *testing.T) {
		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.Nil(t, got.VerificationToken)
		assert.Nil(t, got.TokenExpiresAt)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		_, err := repo.ConsumeVerificationToken(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestFileRepository_MarkVerified(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, "dave@example.com")
	require.NoError(t, err)

	require.NoError(t, repo.MarkVerified(ctx, acct.ID))

	got, err := repo.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Equal(t, StateVerified, got.VerificationState)
}

func TestFileRepository_ClearResetToken(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, "erin@example.com")
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(15 * time.Minute)
	require.NoError(t, repo.SetResetToken(ctx, acct.ID, "reset_live", expiresAt))

	t.Run("MismatchedValue", func(t *testing.T) {
		err := repo.ClearResetToken(ctx, acct.ID, "reset_stale")
		assert.ErrorIs(t, err, ErrTokenNotFound)

		// stored token untouched
		got, err := repo.GetByResetToken(ctx, "reset_live")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
	})

	t.Run("MatchedValue", func(t *testing.T) {
		err := repo.ClearResetToken(ctx, acct.ID, "reset_live")
		require.NoError(t, err)

		_, err = repo.GetByResetToken(ctx, "reset_live")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("SecondClearFails", func(t *testing.T) {
		err := repo.ClearResetToken(ctx, acct.ID, "reset_live")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestFileRepository_Persistence(t *testing.T) {
	tempDir := filepath.Join(os.TempDir(), "account-test-persist-"+uuid.New().String())
	defer os.RemoveAll(tempDir)

	ctx := context.Background()

	repo, err := NewFileRepository(tempDir)
	require.NoError(t, err)

	acct, err := repo.Create(ctx, "frank@example.com")
	require.NoError(t, err)

	// new repository instance over the same directory sees the account
	reloaded, err := NewFileRepository(tempDir)
	require.NoError(t, err)

	got, err := reloaded.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "frank@example.com", got.Email)
}

func TestFileRepository_SaveFailureRollsBack(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	acct, err := repo.Create(ctx, "grace@example.com")
	require.NoError(t, err)

	expiry := time.Now().UTC().Add(15 * time.Minute)
	require.NoError(t, repo.SetVerificationToken(ctx, acct.ID, "verify_live", expiry))
	require.NoError(t, repo.SetResetToken(ctx, acct.ID, "reset_live", expiry))

	// Replace the data directory with a plain file so every save fails
	require.NoError(t, os.RemoveAll(repo.dataDir))
	require.NoError(t, os.WriteFile(repo.dataDir, []byte("not a directory"), 0644))
	t.Cleanup(func() { os.Remove(repo.dataDir) })

	t.Run("SetVerificationToken", func(t *testing.T) {
		err := repo.SetVerificationToken(ctx, acct.ID, "verify_new", expiry)
		require.Error(t, err)

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		require.NotNil(t, got.VerificationToken)
		assert.Equal(t, "verify_live", *got.VerificationToken)
		assert.Equal(t, StatePending, got.VerificationState)
	})

	t.Run("ConsumeVerificationToken", func(t *testing.T) {
		_, err := repo.ConsumeVerificationToken(ctx, "verify_live")
		require.Error(t, err)

		// the secret survives the failed save and stays consumable
		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		require.NotNil(t, got.VerificationToken)
		assert.Equal(t, "verify_live", *got.VerificationToken)
	})

	t.Run("MarkVerified", func(t *testing.T) {
		err := repo.MarkVerified(ctx, acct.ID)
		require.Error(t, err)

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.False(t, got.Verified)
		assert.Equal(t, StatePending, got.VerificationState)
	})

	t.Run("SetResetToken", func(t *testing.T) {
		err := repo.SetResetToken(ctx, acct.ID, "reset_new", expiry)
		require.Error(t, err)

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ResetToken)
		assert.Equal(t, "reset_live", *got.ResetToken)
	})

	t.Run("ClearResetToken", func(t *testing.T) {
		err := repo.ClearResetToken(ctx, acct.ID, "reset_live")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenNotFound)

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ResetToken)
		assert.Equal(t, "reset_live", *got.ResetToken)
	})
}
