package sessionmemory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/session-client/internal/serviceerr"
	"github.com/openkcm/session-client/internal/session"
	sessionmemory "github.com/openkcm/session-client/internal/session/memory"
)

func TestRepository(t *testing.T) {
	repo := sessionmemory.NewRepository(time.Minute)

	_, err := repo.Load(t.Context(), session.DefaultKey)
	require.ErrorIs(t, err, serviceerr.ErrNotFound)

	state := session.State{
		Authenticated: true,
		Identity:      session.Identity{Username: "alice", Groups: []string{"users"}},
		AccessToken:   "access-token",
		AccessExpiry:  session.InstantOf(time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)),
		TokenType:     "Bearer",
		RefreshToken:  "refresh-token",
		RefreshExpiry: session.InstantOf(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, repo.Save(t.Context(), session.DefaultKey, state))

	got, err := repo.Load(t.Context(), session.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	got.Groups[0] = "admins"
	again, err := repo.Load(t.Context(), session.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, again.Groups, "records must not alias caller slices")

	require.NoError(t, repo.Delete(t.Context(), session.DefaultKey))
	_, err = repo.Load(t.Context(), session.DefaultKey)
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
}
