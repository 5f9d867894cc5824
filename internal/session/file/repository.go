// Package sessionfile keeps session records as JSON files in a directory.
package sessionfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/openkcm/session-client/internal/serviceerr"
	"github.com/openkcm/session-client/internal/session"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

var ErrInvalidKey = errors.New("invalid record key")

// Repository writes one <key>.json file per record. Writes replace the file
// atomically.
type Repository struct {
	dir string
}

var _ = session.Repository(&Repository{})

func NewRepository(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Repository{dir: dir}, nil
}

func (r *Repository) Load(_ context.Context, key string) (session.State, error) {
	path, err := r.path(key)
	if err != nil {
		return session.State{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return session.State{}, serviceerr.ErrNotFound
	}
	if err != nil {
		return session.State{}, fmt.Errorf("reading session record: %w", err)
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return session.State{}, fmt.Errorf("unmarshaling session record: %w", err)
	}

	return state, nil
}

func (r *Repository) Save(_ context.Context, key string, state session.State) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary record: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temporary record: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting record permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary record: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing session record: %w", err)
	}

	return nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (r *Repository) Delete(_ context.Context, key string) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session record: %w", err)
	}
	return nil
}

func (r *Repository) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(r.dir, key+".json"), nil
}
