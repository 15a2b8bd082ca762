package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAttemptStore implements AttemptStore on a shared issuance_attempts
// table so the cooldown holds across every service instance.
type PostgresAttemptStore struct {
	db *pgxpool.Pool
}

// NewPostgresAttemptStore creates a new postgres-backed attempt store
func NewPostgresAttemptStore(db *pgxpool.Pool) *PostgresAttemptStore {
	return &PostgresAttemptStore{db: db}
}

// Acquire implements AttemptStore.Acquire. The upsert only lands when the
// held attempt is older than the window, making check and record one atomic
// statement.
func (s *PostgresAttemptStore) Acquire(ctx context.Context, identity string, action Action, now time.Time, window time.Duration) (time.Time, bool, error) {
	insertQuery := `
		INSERT INTO issuance_attempts (identity, action, attempted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity, action) DO UPDATE
		SET attempted_at = EXCLUDED.attempted_at
		WHERE issuance_attempts.attempted_at <= $4
		RETURNING attempted_at
	`

	windowStart := now.Add(-window)

	var attemptedAt time.Time
	err := s.db.QueryRow(ctx, insertQuery, identity, string(action), now.UTC(), windowStart.UTC()).Scan(&attemptedAt)
	if err == nil {
		return attemptedAt, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, err
	}

	// Denied: the existing attempt still holds the window, read it back to
	// compute the remaining wait.
	selectQuery := `
		SELECT attempted_at
		FROM issuance_attempts
		WHERE identity = $1
		AND action = $2
	`

	var last time.Time
	if err := s.db.QueryRow(ctx, selectQuery, identity, string(action)).Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row vanished between the two statements; treat as denied for
			// the full window rather than guessing.
			return now, false, nil
		}
		return time.Time{}, false, err
	}

	return last, false, nil
}
