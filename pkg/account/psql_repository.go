package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new postgres-backed account repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, verification_state, is_verified,
	verification_token, token_expires_at, reset_token, reset_token_expires_at, created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.VerificationState,
		&a.Verified,
		&a.VerificationToken,
		&a.TokenExpiresAt,
		&a.ResetToken,
		&a.ResetTokenExpiresAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new unverified account
func (r *PostgresRepository) Create(ctx context.Context, email string) (*Account, error) {
	query := `
		INSERT INTO accounts (email)
		VALUES ($1)
		RETURNING ` + accountColumns

	a, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an account by id
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

// GetByEmail retrieves an account by email
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	a, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

// SetVerificationToken stores a verification secret, superseding any
// previous one, and moves an unverified account to pending.
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET verification_token = $2,
		    token_expires_at = $3,
		    verification_state = CASE
		        WHEN verification_state = 'unverified' THEN 'pending'
		        ELSE verification_state
		    END
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, token, expiresAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ConsumeVerificationToken atomically clears the secret and returns the
// owning account with the expiry the secret had.
func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, token string) (*Account, error) {
	query := `
		WITH consumed AS (
		    SELECT id, token_expires_at
		    FROM accounts
		    WHERE verification_token = $1
		    FOR UPDATE
		)
		UPDATE accounts a
		SET verification_token = NULL,
		    token_expires_at = NULL
		FROM consumed c
		WHERE a.id = c.id
		RETURNING a.id, a.email, a.verification_state, a.is_verified,
		    NULL::varchar, c.token_expires_at, a.reset_token, a.reset_token_expires_at, a.created_at
	`

	a, err := scanAccount(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return a, nil
}

// MarkVerified flips the account to verified
func (r *PostgresRepository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE accounts
		SET is_verified = TRUE,
		    verification_state = 'verified'
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetResetToken stores a recovery secret, superseding any previous one
func (r *PostgresRepository) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET reset_token = $2,
		    reset_token_expires_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, token, expiresAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// GetByResetToken retrieves the account owning the recovery secret without
// clearing it
func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE reset_token = $1`

	a, err := scanAccount(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return a, nil
}

// ClearResetToken clears the recovery secret only while the stored value
// still matches; a zero row count means another request got there first.
func (r *PostgresRepository) ClearResetToken(ctx context.Context, userID uuid.UUID, token string) error {
	query := `
		UPDATE accounts
		SET reset_token = NULL,
		    reset_token_expires_at = NULL
		WHERE id = $1
		AND reset_token = $2
	`

	tag, err := r.db.Exec(ctx, query, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}
