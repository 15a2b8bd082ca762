package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemAttemptStore implements AttemptStore with a process-local map.
// Suitable for the quick-start service and tests only; it cannot uphold the
// cooldown across multiple instances.
type InMemAttemptStore struct {
	attempts map[string]time.Time
	mutex    sync.Mutex
}

// NewInMemAttemptStore creates a new in-memory attempt store
func NewInMemAttemptStore() *InMemAttemptStore {
	return &InMemAttemptStore{
		attempts: make(map[string]time.Time),
	}
}

func attemptKey(identity string, action Action) string {
	return identity + "/" + string(action)
}

// Acquire implements AttemptStore.Acquire
func (s *InMemAttemptStore) Acquire(ctx context.Context, identity string, action Action, now time.Time, window time.Duration) (time.Time, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := attemptKey(identity, action)
	last, exists := s.attempts[key]
	if exists && now.Sub(last) < window {
		return last, false, nil
	}

	s.attempts[key] = now
	return now, true, nil
}
