package business

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/config"
	"github.com/openkcm/session-client/internal/gate"
	"github.com/openkcm/session-client/internal/notify"
	"github.com/openkcm/session-client/internal/serviceerr"
	"github.com/openkcm/session-client/internal/session"
)

type LoginOptions struct {
	Username string
	Password string
	In       io.Reader
	Out      io.Writer
}

// LoginMain exchanges the user's credentials for a session.
func LoginMain(ctx context.Context, cfg *config.Config, opts LoginOptions) error {
	if opts.Username == "" {
		return errors.New("a username is required")
	}

	password := opts.Password
	if password == "" {
		var err error
		password, err = readPassword(opts.In, opts.Out)
		if err != nil {
			return err
		}
	}

	manager, closeFn, err := initSessionManager(ctx, cfg, session.WithNotifier(consoleNotifier(opts.Out)))
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}
	defer closeFn()

	if err := manager.Login(ctx, session.Credentials{Username: opts.Username, Password: password}); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	state := manager.State()
	_, _ = fmt.Fprintf(opts.Out, "Logged in as %s, access expires at %s\n",
		state.Username, state.AccessExpiry.Time().Format(time.RFC3339))

	return nil
}

type LogoutOptions struct {
	// Purge removes the stored record instead of keeping an empty one.
	Purge bool
	Out   io.Writer
}

// LogoutMain clears the persisted session.
func LogoutMain(ctx context.Context, cfg *config.Config, opts LogoutOptions) error {
	manager, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}
	defer closeFn()

	if !opts.Purge {
		manager.Logout(ctx)
		_, _ = fmt.Fprintln(opts.Out, "Logged out")
		return nil
	}

	if err := manager.Purge(ctx); err != nil {
		return fmt.Errorf("purging the session record: %w", err)
	}
	_, _ = fmt.Fprintln(opts.Out, "Logged out, session record removed")

	return nil
}

// RefreshMain renews the access token with the stored refresh token.
func RefreshMain(ctx context.Context, cfg *config.Config, out io.Writer) error {
	manager, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}
	defer closeFn()

	if err := manager.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing the session: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Access token refreshed, expires at %s\n",
		manager.State().AccessExpiry.Time().Format(time.RFC3339))

	return nil
}

// StatusMain prints the persisted session as YAML. It never modifies the
// session.
func StatusMain(ctx context.Context, cfg *config.Config, out io.Writer) error {
	manager, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}
	defer closeFn()

	data, err := yaml.Marshal(newStatusReport(manager.GetAuth(ctx), manager.State(), time.Now()))
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	_, err = out.Write(data)
	return err
}

type statusReport struct {
	Status        string   `yaml:"status"`
	Username      string   `yaml:"username,omitempty"`
	Email         string   `yaml:"email,omitempty"`
	Groups        []string `yaml:"groups,omitempty"`
	TokenType     string   `yaml:"tokenType,omitempty"`
	AccessExpiry  string   `yaml:"accessExpiry,omitempty"`
	AccessLeft    string   `yaml:"accessLeft,omitempty"`
	RefreshExpiry string   `yaml:"refreshExpiry,omitempty"`
	RefreshLeft   string   `yaml:"refreshLeft,omitempty"`
}

func newStatusReport(status session.AuthStatus, state session.State, now time.Time) statusReport {
	report := statusReport{
		Status:    status.String(),
		Username:  state.Username,
		Email:     state.Email,
		Groups:    state.Groups,
		TokenType: state.TokenType,
	}
	if !state.AccessExpiry.IsZero() {
		report.AccessExpiry = state.AccessExpiry.Time().UTC().Format(time.RFC3339)
		report.AccessLeft = state.AccessExpiry.Until(now).Round(time.Second).String()
	}
	if !state.RefreshExpiry.IsZero() {
		report.RefreshExpiry = state.RefreshExpiry.Time().UTC().Format(time.RFC3339)
		report.RefreshLeft = state.RefreshExpiry.Until(now).Round(time.Second).String()
	}

	return report
}

// KeepAliveMain keeps the session fresh until ctx is done or the session
// expires.
func KeepAliveMain(ctx context.Context, cfg *config.Config) error {
	manager, closeFn, err := initSessionManager(ctx, cfg, session.WithNotifier(notify.Log{}))
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}
	defer closeFn()

	slogctx.Info(ctx, "Starting session keep-alive", "interval", cfg.KeepAlive.Interval)

	return keepAlive(ctx, manager, cfg.KeepAlive.Interval)
}

func keepAlive(ctx context.Context, manager *session.Manager, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("keep-alive interval must be positive, got %s", interval)
	}

	c := time.Tick(interval)
	for {
		if outcome := manager.CheckRefresh(ctx, nil); outcome != session.Fresh {
			return fmt.Errorf("%w: %s", serviceerr.ErrSessionExpired, outcome)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

type RequestOptions struct {
	Method  string
	URL     string
	Body    string
	Headers []string
	Out     io.Writer
	Err     io.Writer
}

// RequestMain sends an HTTP request through the session gate: the access
// token is attached and an expired session aborts the request.
func RequestMain(ctx context.Context, cfg *config.Config, opts RequestOptions) error {
	pipeline := gate.NewPipeline()
	router := gate.NewRouter(pipeline, func(ctx context.Context, route string) {
		if route == cfg.Session.LoginRoute {
			_, _ = fmt.Fprintln(opts.Err, "Run `session-client login` to start a new session")
		}
	})

	manager, closeFn, err := initSessionManager(ctx, cfg,
		session.WithNotifier(consoleNotifier(opts.Err)),
		session.WithNavigator(router),
	)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}
	defer closeFn()

	manager.Attach(pipeline)

	return doRequest(ctx, &http.Client{Transport: gate.NewTransport(pipeline, nil)}, opts)
}

func doRequest(ctx context.Context, client *http.Client, opts RequestOptions) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, opts.URL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for _, header := range opts.Headers {
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			return fmt.Errorf("malformed header %q", header)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(opts.Out, resp.Body); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	return nil
}

// consoleNotifier shows notifications to the user and keeps them in the log.
func consoleNotifier(out io.Writer) session.Notifier {
	return notify.Multi{notify.Log{}, notify.NewConsole(out)}
}
