package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/openkcm/session-client/internal/serviceerr"
)

// DefaultKey is the record key used when none is configured.
const DefaultKey = "ux.auth"

// Store holds the current session snapshot and persists every mutation.
type Store struct {
	mu    sync.RWMutex
	state State
	repo  Repository
	key   string
}

func NewStore(repo Repository, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{repo: repo, key: key}
}

// Load reads the persisted record. A missing record leaves the store empty.
func (s *Store) Load(ctx context.Context) error {
	state, err := s.repo.Load(ctx, s.key)
	if errors.Is(err, serviceerr.ErrNotFound) {
		s.mu.Lock()
		s.state = State{}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading session record: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current snapshot.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.state)
}

// Set applies mutate to the snapshot and persists the result. The in-memory
// state is updated even when persisting fails.
func (s *Store) Set(ctx context.Context, mutate func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := clone(s.state)
	mutate(&next)
	s.state = next

	if err := s.repo.Save(ctx, s.key, next); err != nil {
		return fmt.Errorf("persisting session record: %w", err)
	}
	return nil
}

// Clear resets the snapshot to the unauthenticated defaults and persists it.
func (s *Store) Clear(ctx context.Context) error {
	return s.Set(ctx, func(st *State) { *st = State{} })
}

// Purge resets the snapshot and removes the persisted record entirely.
func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = State{}
	if err := s.repo.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("deleting session record: %w", err)
	}
	return nil
}

func (s *Store) Key() string { return s.key }

func clone(s State) State {
	s.Groups = slices.Clone(s.Groups)
	return s
}
