package sessionvalkey

import (
	"context"
	"errors"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/session-client/internal/session"
)

type ObjectType string

const objectTypeSession ObjectType = "session"

var (
	ErrGetSession   = errors.New("getting session from store")
	ErrStoreSession = errors.New("setting session into storage")
	ErrDelSession   = errors.New("deleting session from store")
)

// Repository keeps session records under prefix:session:<key>.
type Repository struct {
	store *store
}

var _ = session.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
	}
}

func (r *Repository) Load(ctx context.Context, key string) (session.State, error) {
	var state session.State
	if err := r.store.Get(ctx, objectTypeSession, key, &state); err != nil {
		return session.State{}, errors.Join(ErrGetSession, err)
	}

	return state, nil
}

func (r *Repository) Save(ctx context.Context, key string, state session.State) error {
	if err := r.store.Set(ctx, objectTypeSession, key, state); err != nil {
		return errors.Join(ErrStoreSession, err)
	}

	return nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if err := r.store.Destroy(ctx, objectTypeSession, key); err != nil {
		return errors.Join(ErrDelSession, err)
	}

	return nil
}
