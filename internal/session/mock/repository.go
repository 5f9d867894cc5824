package sessionmock

import (
	"context"
	"sync"

	"github.com/openkcm/session-client/internal/serviceerr"
	"github.com/openkcm/session-client/internal/session"
)

type RepositoryOption func(*Repository)

type Repository struct {
	mu      sync.Mutex
	records map[string]session.State
	saves   int
	deletes int

	loadErr, saveErr, deleteErr error
}

func WithState(key string, state session.State) RepositoryOption {
	return func(r *Repository) { r.records[key] = state }
}
func WithLoadError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}
func WithSaveError(err error) RepositoryOption {
	return func(r *Repository) { r.saveErr = err }
}

func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

var _ = session.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		records: make(map[string]session.State),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) Load(_ context.Context, key string) (session.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadErr != nil {
		return session.State{}, r.loadErr
	}
	if state, ok := r.records[key]; ok {
		return state, nil
	}
	return session.State{}, serviceerr.ErrNotFound
}

func (r *Repository) Save(_ context.Context, key string, state session.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[key] = state
	r.saves++
	return nil
}

func (r *Repository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.records, key)
	r.deletes++
	return nil
}

// Has reports whether a record is stored under key.
func (r *Repository) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[key]
	return ok
}

// Deletes returns the number of successful deletes.
func (r *Repository) Deletes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deletes
}

// Saves returns the number of successful saves.
func (r *Repository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
