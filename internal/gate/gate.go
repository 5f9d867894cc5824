// Package gate intercepts outgoing requests and client-side navigation so
// that registered hooks can decorate requests or abort them before they are
// sent.
package gate

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/serviceerr"
)

const RequestIDHeader = "X-Request-ID"

// PreSendHook runs before a request leaves the client. It may modify req and
// abort it through pending.
type PreSendHook func(req *http.Request, pending *Pending)

// NavigationHook runs after the router moved to route.
type NavigationHook func(ctx context.Context, route string)

// Pipeline holds the registered hooks. It is safe for concurrent use.
type Pipeline struct {
	mu         sync.RWMutex
	preSend    []PreSendHook
	navigation []NavigationHook
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) RegisterPreSendHook(fn PreSendHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preSend = append(p.preSend, fn)
}

func (p *Pipeline) RegisterNavigationHook(fn NavigationHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigation = append(p.navigation, fn)
}

// PreSend runs the pre-send hooks in registration order and stops at the
// first one that aborts the request.
func (p *Pipeline) PreSend(req *http.Request, pending *Pending) {
	p.mu.RLock()
	hooks := p.preSend
	p.mu.RUnlock()

	for _, hook := range hooks {
		hook(req, pending)
		if pending.Aborted() {
			return
		}
	}
}

func (p *Pipeline) Navigated(ctx context.Context, route string) {
	p.mu.RLock()
	hooks := p.navigation
	p.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, route)
	}
}

// Pending is a request that has not been sent yet.
type Pending struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	aborted bool
}

func newPending(cancel context.CancelFunc) *Pending {
	return &Pending{cancel: cancel}
}

// Abort cancels the request. It is safe to call more than once.
func (p *Pending) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.aborted {
		return
	}
	p.aborted = true
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pending) Aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}

// Transport runs the pipeline's pre-send hooks before delegating to next.
type Transport struct {
	pipeline *Pipeline
	next     http.RoundTripper
}

func NewTransport(pipeline *Pipeline, next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{pipeline: pipeline, next: next}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())

	out := req.Clone(ctx)
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}

	pending := newPending(cancel)
	t.pipeline.PreSend(out, pending)

	if pending.Aborted() {
		slogctx.Info(ctx, "Request aborted before sending",
			"method", out.Method, "url", out.URL.Redacted(), "request_id", out.Header.Get(RequestIDHeader))
		return nil, errors.Join(serviceerr.ErrRequestAborted, serviceerr.ErrSessionExpired)
	}

	resp, err := t.next.RoundTrip(out)
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Router tracks the current route and notifies navigation hooks.
type Router struct {
	pipeline *Pipeline
	onRoute  func(ctx context.Context, route string)

	mu      sync.Mutex
	current string
}

// NewRouter returns a router. onRoute, if not nil, performs the actual
// route change before the hooks run.
func NewRouter(pipeline *Pipeline, onRoute func(ctx context.Context, route string)) *Router {
	return &Router{pipeline: pipeline, onRoute: onRoute}
}

func (r *Router) Navigate(ctx context.Context, route string) {
	r.mu.Lock()
	r.current = route
	r.mu.Unlock()

	if r.onRoute != nil {
		r.onRoute(ctx, route)
	}

	r.pipeline.Navigated(ctx, route)
}

func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
