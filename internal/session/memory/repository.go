// Package sessionmemory keeps session records in process memory.
package sessionmemory

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openkcm/session-client/internal/serviceerr"
	"github.com/openkcm/session-client/internal/session"
)

// Repository stores records in a go-cache. Records never expire; the cleanup
// interval only bounds how often the janitor runs.
type Repository struct {
	cache *cache.Cache
}

var _ = session.Repository(&Repository{})

func NewRepository(cleanupInterval time.Duration) *Repository {
	return &Repository{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (r *Repository) Load(_ context.Context, key string) (session.State, error) {
	v, ok := r.cache.Get(key)
	if !ok {
		return session.State{}, serviceerr.ErrNotFound
	}

	//nolint:forcetypeassert
	state := v.(session.State)
	state.Groups = slices.Clone(state.Groups)
	return state, nil
}

func (r *Repository) Save(_ context.Context, key string, state session.State) error {
	state.Groups = slices.Clone(state.Groups)
	r.cache.Set(key, state, cache.NoExpiration)
	return nil
}

func (r *Repository) Delete(_ context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}
