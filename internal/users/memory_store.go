package users

import (
	"context"
	"sync"
)

// MemoryStore keeps users in process memory. Nothing survives a restart;
// it exists for tests and single-process demos.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) Find(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[Canonicalize(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) Create(_ context.Context, username, passwordHash string) (*User, error) {
	name := Canonicalize(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[name]; ok {
		return nil, ErrAlreadyExists
	}

	u := User{Username: name, PasswordHash: passwordHash}
	s.users[name] = u
	return &u, nil
}

func (s *MemoryStore) UpdateLastCity(_ context.Context, username, city string) error {
	name := Canonicalize(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[name]
	if !ok {
		return ErrNotFound
	}
	u.LastCity = city
	s.users[name] = u
	return nil
}
