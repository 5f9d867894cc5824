package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	slogctx "github.com/veqryn/slog-context"
)

const instrumentationName = "github.com/openkcm/session-client/internal/session"

type meters struct {
	logins       metric.Int64Counter
	refreshes    metric.Int64Counter
	forcedLogout metric.Int64Counter
	aborted      metric.Int64Counter
}

func newMeters(provider metric.MeterProvider) *meters {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(otel.Version()))

	return &meters{
		logins:       counter(meter, "session.login_count", "Login attempts", "login"),
		refreshes:    counter(meter, "session.refresh_count", "Access token refresh attempts", "refresh"),
		forcedLogout: counter(meter, "session.forced_logout_count", "Logouts caused by an expired session", "logout"),
		aborted:      counter(meter, "session.aborted_request_count", "Requests aborted before sending", "request"),
	}
}

func counter(meter metric.Meter, name, description, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		slogctx.Warn(context.Background(), "Could not create meter, using a no-op counter", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

func (m *meters) login(ctx context.Context, err error) {
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

func (m *meters) refresh(ctx context.Context, err error) {
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

func (m *meters) forced(ctx context.Context, outcome Outcome) {
	m.forcedLogout.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", outcome.String())))
}

func (m *meters) abort(ctx context.Context) {
	m.aborted.Add(ctx, 1)
}
