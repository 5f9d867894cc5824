package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/claims"
	"github.com/openkcm/session-client/internal/clock"
	"github.com/openkcm/session-client/internal/gate"
	"github.com/openkcm/session-client/internal/scheduler"
	"github.com/openkcm/session-client/internal/serviceerr"
)

const (
	DefaultLoginRoute = "login"

	MsgRefreshTimeout    = "Access expired by refresh timeout, logged out."
	MsgInactivityTimeout = "Access expired by inactivity timeout, logged out."
)

type Option func(*Manager)

func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clock = clk }
}

func WithPolicy(policy scheduler.Policy) Option {
	return func(m *Manager) { m.policy = policy }
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithNavigator(n Navigator) Option {
	return func(m *Manager) { m.navigator = n }
}

func WithLoginRoute(route string) Option {
	return func(m *Manager) {
		if route != "" {
			m.loginRoute = route
		}
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(m *Manager) { m.meterProvider = provider }
}

// Manager owns the session state and keeps it alive. It is safe for
// concurrent use.
type Manager struct {
	store     *Store
	exchanger Exchanger
	decoder   *claims.Decoder
	scheduler *scheduler.Scheduler

	clock         clock.Clock
	policy        scheduler.Policy
	notifier      Notifier
	navigator     Navigator
	loginRoute    string
	meterProvider metric.MeterProvider
	meters        *meters

	// bumped by every logout so a refresh can tell it raced one
	logoutEpoch atomic.Uint64
}

var _ scheduler.Target = (*Manager)(nil)

func NewManager(store *Store, exchanger Exchanger, decoder *claims.Decoder, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		exchanger:  exchanger,
		decoder:    decoder,
		clock:      clock.Real{},
		policy:     scheduler.DefaultPolicy(),
		loginRoute: DefaultLoginRoute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.decoder == nil {
		m.decoder = claims.NewDecoder()
	}
	if m.notifier == nil {
		m.notifier = discard{}
	}
	if m.navigator == nil {
		m.navigator = discard{}
	}

	m.meters = newMeters(m.meterProvider)
	m.scheduler = scheduler.New(m, m.clock, m.policy)

	return m
}

// Load restores the persisted session.
func (m *Manager) Load(ctx context.Context) error {
	return m.store.Load(ctx)
}

// Close stops the refresh scheduler.
func (m *Manager) Close() {
	m.scheduler.Close()
}

// State returns a snapshot of the current session.
func (m *Manager) State() State {
	return m.store.Get()
}

// Login exchanges the credentials for a token pair and replaces the session
// with it. Any failure leaves the session unauthenticated.
func (m *Manager) Login(ctx context.Context, creds Credentials) (err error) {
	defer func() { m.meters.login(ctx, err) }()

	resp, err := m.exchanger.GetAccess(ctx, creds)
	if err != nil {
		m.reset(ctx)
		return fmt.Errorf("exchanging credentials: %w", err)
	}

	state, err := m.stateFrom(resp)
	if err != nil {
		m.reset(ctx)
		return fmt.Errorf("decoding token response: %w", err)
	}

	persistErr := m.store.Set(ctx, func(s *State) { *s = state })

	if m.GetAuth(ctx) != Authenticated {
		return serviceerr.ErrUnauthenticated
	}

	slogctx.Info(ctx, "Logged in", "username", state.Username, "access_exp", state.AccessExpiry.Time())
	m.scheduler.Trigger()

	return persistErr
}

// Logout resets the session and reports whether it is still authenticated,
// which is always false. Persist failures are logged only.
func (m *Manager) Logout(ctx context.Context) bool {
	m.logoutEpoch.Add(1)
	m.scheduler.Cancel()

	if err := m.store.Clear(ctx); err != nil {
		slogctx.Warn(ctx, "Could not persist the logged out session", "error", err)
	}

	return m.store.Get().Authenticated
}

// Purge logs out like Logout and removes the persisted record instead of
// overwriting it with an empty one.
func (m *Manager) Purge(ctx context.Context) error {
	m.logoutEpoch.Add(1)
	m.scheduler.Cancel()

	return m.store.Purge(ctx)
}

// Refresh exchanges the stored refresh token for a new token pair. A failed
// refresh leaves the session untouched.
func (m *Manager) Refresh(ctx context.Context) (err error) {
	current := m.store.Get()
	if current.RefreshToken == "" {
		return serviceerr.ErrNoRefreshToken
	}
	defer func() { m.meters.refresh(ctx, err) }()

	epoch := m.logoutEpoch.Load()

	resp, err := m.exchanger.GetRefresh(ctx, current.RefreshToken)
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}

	state, err := m.stateFrom(resp)
	if err != nil {
		return fmt.Errorf("decoding refreshed token response: %w", err)
	}

	if m.logoutEpoch.Load() != epoch {
		// Known gap: the refreshed tokens still replace the logged out session.
		slogctx.Warn(ctx, "Refresh completed after a logout, session is restored with the refreshed tokens")
	}

	persistErr := m.store.Set(ctx, func(s *State) { *s = state })

	if m.GetAuth(ctx) != Authenticated {
		return serviceerr.ErrUnauthenticated
	}

	slogctx.Info(ctx, "Refreshed access token", "access_exp", state.AccessExpiry.Time())

	return persistErr
}

// CheckRefresh inspects both expiries. An expired session is logged out, the
// user is sent to the login route and pending, if any, is aborted. A fresh
// session only triggers the scheduler.
func (m *Manager) CheckRefresh(ctx context.Context, pending Abortable) Outcome {
	now := m.clock.Now()
	state := m.store.Get()

	var (
		outcome Outcome
		message string
	)
	switch {
	case state.RefreshExpiry.IsZero() || state.RefreshExpiry.Until(now) < 0:
		outcome, message = RefreshTimeout, MsgRefreshTimeout
	case state.AccessExpiry.IsZero() || state.AccessExpiry.Until(now) < 0:
		outcome, message = InactivityTimeout, MsgInactivityTimeout
	default:
		m.scheduler.Trigger()
		return Fresh
	}

	if pending != nil {
		pending.Abort()
		m.meters.abort(ctx)
	}

	m.Logout(ctx)
	m.meters.forced(ctx, outcome)
	m.navigator.Navigate(ctx, m.loginRoute)
	m.notifier.Notify(ctx, LevelWarning, message)

	return outcome
}

func (m *Manager) GetAuth(_ context.Context) AuthStatus {
	if m.store.Get().Authenticated {
		return Authenticated
	}
	return Unauthenticated
}

// Authenticated reports whether a session is held.
func (m *Manager) Authenticated() bool {
	return m.store.Get().Authenticated
}

// AccessExpiry returns the zero time when no access token is held.
func (m *Manager) AccessExpiry() time.Time {
	return m.store.Get().AccessExpiry.Time()
}

// Attach registers the manager's hooks on pipeline. Navigating to the login
// route never checks the session.
func (m *Manager) Attach(pipeline *gate.Pipeline) {
	pipeline.RegisterPreSendHook(func(req *http.Request, pending *gate.Pending) {
		state := m.store.Get()
		if state.AccessToken != "" {
			req.Header.Set("Authorization", authorization(state))
		}
		m.CheckRefresh(req.Context(), pending)
	})

	pipeline.RegisterNavigationHook(func(ctx context.Context, route string) {
		if route == m.loginRoute {
			return
		}
		m.CheckRefresh(ctx, nil)
	})
}

func authorization(state State) string {
	return state.TokenType + " " + state.AccessToken
}

// stateFrom builds an authenticated state from a token response. Expiries
// come from the decoded exp claims only.
func (m *Manager) stateFrom(resp TokenResponse) (State, error) {
	if resp.AccessToken == "" {
		return State{}, errors.Join(serviceerr.ErrDecodeFailed, errors.New("token response carries no access token"))
	}

	access, err := m.decoder.Decode(resp.AccessToken)
	if err != nil {
		return State{}, fmt.Errorf("access token: %w", err)
	}

	refresh, err := m.decoder.Decode(resp.RefreshToken)
	if err != nil {
		return State{}, fmt.Errorf("refresh token: %w", err)
	}

	return State{
		Authenticated: true,
		Identity: Identity{
			Username: access.Username,
			Email:    access.Email,
			Groups:   access.Groups,
		},
		AccessToken:   resp.AccessToken,
		AccessExpiry:  InstantOf(access.Expiry),
		TokenType:     resp.TokenType,
		ExpiresIn:     resp.ExpiresIn,
		RefreshToken:  resp.RefreshToken,
		RefreshExpiry: InstantOf(refresh.Expiry),
	}, nil
}

func (m *Manager) reset(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		slogctx.Warn(ctx, "Could not persist the reset session", "error", err)
	}
}

type discard struct{}

func (discard) Notify(context.Context, Level, string) {}
func (discard) Navigate(context.Context, string)      {}
