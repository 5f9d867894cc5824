package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/session-client/internal/clock"
	"github.com/openkcm/session-client/internal/session"
	sessionmock "github.com/openkcm/session-client/internal/session/mock"
)

var (
	testNow     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testSignKey = []byte("0123456789abcdef0123456789abcdef") // NOSONAR
)

func mintToken(t *testing.T, c gojwt.MapClaims) string {
	t.Helper()
	c["jti"] = uuid.NewString()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString(testSignKey)
	require.NoError(t, err)
	return token
}

// tokenPair mints an access and refresh token for username that expire
// accessTTL and refreshTTL after now.
func tokenPair(t *testing.T, username string, now time.Time, accessTTL, refreshTTL time.Duration) session.TokenResponse {
	t.Helper()
	return session.TokenResponse{
		AccessToken: mintToken(t, gojwt.MapClaims{
			"sub":      "id-" + username,
			"username": username,
			"email":    username + "@example.com",
			"groups":   []string{"users"},
			"exp":      now.Add(accessTTL).Unix(),
		}),
		RefreshToken: mintToken(t, gojwt.MapClaims{
			"sub": "id-" + username,
			"exp": now.Add(refreshTTL).Unix(),
		}),
		TokenType: "Bearer",
		ExpiresIn: int64(accessTTL.Seconds()),
	}
}

// authenticatedState is a persisted session with the given expiries.
func authenticatedState(accessExp, refreshExp session.Instant) session.State {
	return session.State{
		Authenticated: true,
		Identity:      session.Identity{Username: "alice", Email: "alice@example.com", Groups: []string{"users"}},
		AccessToken:   "access-token",
		AccessExpiry:  accessExp,
		TokenType:     "Bearer",
		ExpiresIn:     900,
		RefreshToken:  "refresh-token",
		RefreshExpiry: refreshExp,
	}
}

type fakeExchanger struct {
	mu           sync.Mutex
	access       func(creds session.Credentials) (session.TokenResponse, error)
	refresh      func(token string) (session.TokenResponse, error)
	accessCalls  int
	refreshCalls int
}

func (f *fakeExchanger) GetAccess(_ context.Context, creds session.Credentials) (session.TokenResponse, error) {
	f.mu.Lock()
	f.accessCalls++
	fn := f.access
	f.mu.Unlock()
	return fn(creds)
}

func (f *fakeExchanger) GetRefresh(_ context.Context, token string) (session.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refresh
	f.mu.Unlock()
	return fn(token)
}

func (f *fakeExchanger) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessCalls, f.refreshCalls
}

type notification struct {
	level   session.Level
	message string
}

type recorder struct {
	mu     sync.Mutex
	notes  []notification
	routes []string
}

func (r *recorder) Notify(_ context.Context, level session.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, notification{level: level, message: message})
}

func (r *recorder) Navigate(_ context.Context, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

type abortable struct{ aborted bool }

func (a *abortable) Abort() { a.aborted = true }

type fixture struct {
	manager   *session.Manager
	repo      *sessionmock.Repository
	exchanger *fakeExchanger
	clock     *clock.Fake
	recorder  *recorder
}

func newFixture(t *testing.T, repo *sessionmock.Repository, ex *fakeExchanger) *fixture {
	t.Helper()

	if repo == nil {
		repo = sessionmock.NewInMemRepository()
	}
	clk := clock.NewFake(testNow)
	rec := &recorder{}

	m := session.NewManager(
		session.NewStore(repo, session.DefaultKey),
		ex,
		nil,
		session.WithClock(clk),
		session.WithNotifier(rec),
		session.WithNavigator(rec),
	)
	t.Cleanup(m.Close)
	require.NoError(t, m.Load(t.Context()))

	return &fixture{manager: m, repo: repo, exchanger: ex, clock: clk, recorder: rec}
}
