package account

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileRepository implements Repository using file-based storage. Intended
// for the quick-start service and tests; a multi-instance deployment should
// use the postgres repository.
type FileRepository struct {
	dataDir  string
	accounts map[uuid.UUID]*Account
	mutex    sync.RWMutex
}

type accountData struct {
	Accounts []*Account `json:"accounts"`
}

// NewFileRepository creates a new file-based account repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir:  dataDir,
		accounts: make(map[uuid.UUID]*Account),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileRepository) filePath() string {
	return filepath.Join(r.dataDir, "accounts.json")
}

func (r *FileRepository) load() error {
	data, err := os.ReadFile(r.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var stored accountData
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}

	for _, a := range stored.Accounts {
		r.accounts[a.ID] = a
	}
	return nil
}

func (r *FileRepository) save() error {
	stored := accountData{}
	for _, a := range r.accounts {
		stored.Accounts = append(stored.Accounts, a)
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filePath(), data, 0644)
}

// Create inserts a new unverified account
func (r *FileRepository) Create(ctx context.Context, email string) (*Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, a := range r.accounts {
		if a.Email == email {
			return nil, ErrDuplicateEmail
		}
	}

	a := &Account{
		ID:                uuid.New(),
		Email:             email,
		VerificationState: StateUnverified,
		CreatedAt:         time.Now().UTC(),
	}
	r.accounts[a.ID] = a

	if err := r.save(); err != nil {
		delete(r.accounts, a.ID)
		return nil, fmt.Errorf("failed to save: %w", err)
	}

	acctCopy := *a
	return &acctCopy, nil
}

// GetByID retrieves an account by id
func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	a, exists := r.accounts[id]
	if !exists {
		return nil, ErrAccountNotFound
	}

	acctCopy := *a
	return &acctCopy, nil
}

// GetByEmail retrieves an account by email
func (r *FileRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, a := range r.accounts {
		if a.Email == email {
			acctCopy := *a
			return &acctCopy, nil
		}
	}

	return nil, ErrAccountNotFound
}

// SetVerificationToken stores a verification secret, superseding any
// previous one, and moves an unverified account to pending
func (r *FileRepository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	a, exists := r.accounts[userID]
	if !exists {
		return ErrAccountNotFound
	}

	prevToken, prevExpiry, prevState := a.VerificationToken, a.TokenExpiresAt, a.VerificationState

	expiresAt = expiresAt.UTC()
	a.VerificationToken = &token
	a.TokenExpiresAt = &expiresAt
	if a.VerificationState == StateUnverified {
		a.VerificationState = StatePending
	}

	if err := r.save(); err != nil {
		a.VerificationToken, a.TokenExpiresAt, a.VerificationState = prevToken, prevExpiry, prevState
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// ConsumeVerificationToken clears the secret and returns the owning account
// with the expiry the secret had
func (r *FileRepository) ConsumeVerificationToken(ctx context.Context, token string) (*Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, a := range r.accounts {
		if a.VerificationToken != nil && *a.VerificationToken == token {
			snapshot := *a
			a.VerificationToken = nil
			a.TokenExpiresAt = nil

			if err := r.save(); err != nil {
				a.VerificationToken, a.TokenExpiresAt = snapshot.VerificationToken, snapshot.TokenExpiresAt
				return nil, fmt.Errorf("failed to save: %w", err)
			}

			snapshot.VerificationToken = nil
			return &snapshot, nil
		}
	}

	return nil, ErrTokenNotFound
}

// MarkVerified flips the account to verified
func (r *FileRepository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	a, exists := r.accounts[userID]
	if !exists {
		return ErrAccountNotFound
	}

	prevVerified, prevState := a.Verified, a.VerificationState

	a.Verified = true
	a.VerificationState = StateVerified

	if err := r.save(); err != nil {
		a.Verified, a.VerificationState = prevVerified, prevState
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// SetResetToken stores a recovery secret, superseding any previous one
func (r *FileRepository) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	a, exists := r.accounts[userID]
	if !exists {
		return ErrAccountNotFound
	}

	prevToken, prevExpiry := a.ResetToken, a.ResetTokenExpiresAt

	expiresAt = expiresAt.UTC()
	a.ResetToken = &token
	a.ResetTokenExpiresAt = &expiresAt

	if err := r.save(); err != nil {
		a.ResetToken, a.ResetTokenExpiresAt = prevToken, prevExpiry
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// GetByResetToken retrieves the account owning the recovery secret without
// clearing it
func (r *FileRepository) GetByResetToken(ctx context.Context, token string) (*Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, a := range r.accounts {
		if a.ResetToken != nil && *a.ResetToken == token {
			acctCopy := *a
			return &acctCopy, nil
		}
	}

	return nil, ErrTokenNotFound
}

// ClearResetToken clears the recovery secret only while the stored value
// still matches
func (r *FileRepository) ClearResetToken(ctx context.Context, userID uuid.UUID, token string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	a, exists := r.accounts[userID]
	if !exists {
		return ErrAccountNotFound
	}

	if a.ResetToken == nil || *a.ResetToken != token {
		return ErrTokenNotFound
	}

	prevToken, prevExpiry := a.ResetToken, a.ResetTokenExpiresAt

	a.ResetToken = nil
	a.ResetTokenExpiresAt = nil

	if err := r.save(); err != nil {
		a.ResetToken, a.ResetTokenExpiresAt = prevToken, prevExpiry
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}
