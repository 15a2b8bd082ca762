package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable wraps credential store failures so flows can leave
// secrets valid for retry.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Store persists password hashes keyed by user id. The administrative
// set-by-user-id operation needs no current-password check.
type Store interface {
	// UpdatePassword upserts the password hash for the user
	UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error
}

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new postgres-backed credential store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpdatePassword implements Store.UpdatePassword
func (s *PostgresStore) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	query := `
		INSERT INTO credentials (account_id, password_hash, updated_at)
		VALUES ($1, $2, NOW() AT TIME ZONE 'UTC')
		ON CONFLICT (account_id) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.Exec(ctx, query, userID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FileStore implements Store using file-based storage, for the quick-start
// service and tests.
type FileStore struct {
	dataDir     string
	credentials map[uuid.UUID]storedCredential
	mutex       sync.Mutex
}

type storedCredential struct {
	PasswordHash string    `json:"password_hash"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewFileStore creates a new file-based credential store
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &FileStore{
		dataDir:     dataDir,
		credentials: make(map[uuid.UUID]storedCredential),
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return store, nil
}

func (s *FileStore) filePath() string {
	return filepath.Join(s.dataDir, "credentials.json")
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.credentials)
}

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.credentials, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath(), data, 0600)
}

// UpdatePassword implements Store.UpdatePassword
func (s *FileStore) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.credentials[userID] = storedCredential{
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
	}

	if err := s.save(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
