// Package scheduler keeps an access token fresh by arming a single timer
// relative to the token expiry.
//
// A scheduler is either idle or armed with exactly one pending timer. Arming
// always supersedes the previous timer. When the timer fires the remaining
// lifetime of the access token decides what happens next:
//
//	left > Far          no action, or a re-check after RecheckInterval
//	Near < left <= Far  re-arm so that the next check lands Lead before expiry
//	left <= Near        refresh now
//
// Trigger is the entry point for bursty callers. It is rate limited to one
// evaluation per TriggerWindow and only arms when no timer is pending.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/clock"
)

// Target is the session the scheduler keeps alive.
type Target interface {
	Authenticated() bool
	// AccessExpiry returns the zero time when no access token is held.
	AccessExpiry() time.Time
	Refresh(ctx context.Context) error
}

type Policy struct {
	Far             time.Duration
	Near            time.Duration
	Lead            time.Duration
	TriggerWindow   time.Duration
	RecheckInterval time.Duration // zero disables periodic re-checks
}

func DefaultPolicy() Policy {
	return Policy{
		Far:           12 * time.Minute,
		Near:          4 * time.Minute,
		Lead:          2 * time.Minute,
		TriggerWindow: 5 * time.Second,
	}
}

type Scheduler struct {
	target  Target
	clock   clock.Clock
	policy  Policy
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timer  clock.Timer
	gen    uint64
	closed bool
}

func New(target Target, clk clock.Clock, policy Policy) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}

	limit := rate.Inf
	if policy.TriggerWindow > 0 {
		limit = rate.Every(policy.TriggerWindow)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		target:  target,
		clock:   clk,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ScheduleNext cancels any pending timer and, if the target is authenticated,
// arms a new one firing after delay.
func (s *Scheduler) ScheduleNext(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.armLocked(delay)
}

// Trigger evaluates the schedule at most once per trigger window. It arms
// an immediate check only when no timer is pending and reports whether it did.
func (s *Scheduler) Trigger() bool {
	if !s.limiter.AllowN(s.clock.Now(), 1) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		return false
	}

	return s.armLocked(0)
}

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Close cancels the pending timer and any refresh started by it. A closed
// scheduler never arms again.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelLocked()
	s.mu.Unlock()

	s.cancel()
}

func (s *Scheduler) armLocked(delay time.Duration) bool {
	if s.closed || !s.target.Authenticated() {
		return false
	}

	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen) })

	slogctx.Debug(s.ctx, "Armed the refresh timer", "delay", delay)
	return true
}

func (s *Scheduler) cancelLocked() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	// a timer that already started firing must observe that it was superseded
	s.gen++
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	left := s.target.AccessExpiry().Sub(s.clock.Now())

	switch {
	case left > s.policy.Far:
		if s.policy.RecheckInterval > 0 {
			s.ScheduleNext(s.policy.RecheckInterval)
		}
	case left > s.policy.Near:
		s.ScheduleNext(left - s.policy.Lead)
	default:
		slogctx.Info(s.ctx, "Access token close to expiry, refreshing", "left", left)
		if err := s.target.Refresh(s.ctx); err != nil {
			slogctx.Warn(s.ctx, "Scheduled token refresh failed", "error", err)
		}
	}
}
