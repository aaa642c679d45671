package memory

import (
	"context"
	"sync"
)

// RecoveryStore keeps recovery entries in process memory
type RecoveryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewRecoveryStore() *RecoveryStore {
	return &RecoveryStore{entries: make(map[string]string)}
}

func (s *RecoveryStore) Get(_ context.Context, documentID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.entries[documentID]
	return body, ok, nil
}

func (s *RecoveryStore) Put(_ context.Context, documentID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[documentID] = content
	return nil
}

func (s *RecoveryStore) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, documentID)
	return nil
}

// Len returns the number of stored entries
func (s *RecoveryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
