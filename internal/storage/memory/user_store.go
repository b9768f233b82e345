package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pagelens/pagelens/internal/analysis"
)

// UserStore keeps the email to user-id mapping in-memory.
type UserStore struct {
	idGen analysis.IDGenerator

	mu      sync.RWMutex
	byEmail map[string]string
}

// NewUserStore creates a new in-memory UserStore.
func NewUserStore(idGen analysis.IDGenerator) *UserStore {
	return &UserStore{
		idGen:   idGen,
		byEmail: make(map[string]string),
	}
}

// FindByEmail returns the id registered under email.
func (s *UserStore) FindByEmail(_ context.Context, email string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return "", analysis.ErrUserNotFound
	}
	return id, nil
}

// Create registers a new user and returns its generated id.
func (s *UserStore) Create(_ context.Context, email string) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return "", analysis.ErrEmailTaken
	}
	s.byEmail[email] = id
	return id, nil
}
