package business

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/session-client/internal/claims"
	"github.com/openkcm/session-client/internal/config"
	"github.com/openkcm/session-client/internal/exchange"
	"github.com/openkcm/session-client/internal/oidc"
	"github.com/openkcm/session-client/internal/scheduler"
	"github.com/openkcm/session-client/internal/session"
	sessionfile "github.com/openkcm/session-client/internal/session/file"
	sessionmemory "github.com/openkcm/session-client/internal/session/memory"
	sessionsql "github.com/openkcm/session-client/internal/session/sql"
	sessionvalkey "github.com/openkcm/session-client/internal/session/valkey"
)

var ErrUnknownStorage = errors.New("unknown storage type")

// initSessionManager wires the configured storage and token endpoint into a
// session manager and restores the persisted session.
func initSessionManager(ctx context.Context, cfg *config.Config, opts ...session.Option) (_ *session.Manager, closeFn func(), _ error) {
	repo, closeRepo, err := repositoryFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating session repository: %w", err)
	}

	exchanger, err := exchangerFromConfig(cfg)
	if err != nil {
		closeRepo()
		return nil, nil, fmt.Errorf("creating exchange client: %w", err)
	}

	opts = append([]session.Option{
		session.WithPolicy(policyFromConfig(cfg.Scheduler)),
		session.WithLoginRoute(cfg.Session.LoginRoute),
	}, opts...)

	manager := session.NewManager(
		session.NewStore(repo, cfg.Session.Key),
		exchanger,
		claims.NewDecoder(),
		opts...,
	)

	closeFn = func() {
		manager.Close()
		closeRepo()
	}

	if err := manager.Load(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}

	return manager, closeFn, nil
}

func policyFromConfig(cfg config.Scheduler) scheduler.Policy {
	policy := scheduler.DefaultPolicy()
	if cfg.Far > 0 {
		policy.Far = cfg.Far
	}
	if cfg.Near > 0 {
		policy.Near = cfg.Near
	}
	if cfg.Lead > 0 {
		policy.Lead = cfg.Lead
	}
	if cfg.TriggerWindow > 0 {
		policy.TriggerWindow = cfg.TriggerWindow
	}
	policy.RecheckInterval = cfg.RecheckInterval

	return policy
}

func exchangerFromConfig(cfg *config.Config) (*exchange.Client, error) {
	httpClient, err := exchange.NewHTTPClient(cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("loading http client: %w", err)
	}

	var endpoint exchange.Endpoint
	switch {
	case cfg.Exchange.TokenEndpoint != "":
		endpoint = exchange.StaticEndpoint(cfg.Exchange.TokenEndpoint)
	case cfg.Exchange.IssuerURL != "":
		endpoint = exchange.DiscoveredEndpoint{
			Discovery: oidc.NewDiscovery(httpClient, cfg.Exchange.DiscoveryCacheTTL),
			IssuerURL: cfg.Exchange.IssuerURL,
		}
	default:
		return nil, errors.New("either a token endpoint or an issuer URL must be configured")
	}

	return exchange.NewClient(httpClient, endpoint, cfg.Exchange.ClientAuth.ClientID, cfg.Exchange.Scopes), nil
}

func repositoryFromConfig(ctx context.Context, cfg *config.Config) (session.Repository, func(), error) {
	switch cfg.Storage.Type {
	case config.StorageFile, "":
		dir, err := stateDir(cfg.Storage)
		if err != nil {
			return nil, nil, err
		}

		repo, err := sessionfile.NewRepository(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("creating file repository: %w", err)
		}

		return repo, func() {}, nil
	case config.StorageMemory:
		return sessionmemory.NewRepository(cfg.Storage.CleanupInterval), func() {}, nil
	case config.StorageValKey:
		valkeyClient, err := valkeyClientFromConfig(cfg)
		if err != nil {
			return nil, nil, err
		}

		return sessionvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix), valkeyClient.Close, nil
	case config.StoragePostgres:
		connStr, err := config.MakeConnStr(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("making dsn from config: %w", err)
		}

		db, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, nil, fmt.Errorf("initialising pgxpool connection: %w", err)
		}

		return sessionsql.NewRepository(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Storage.Type)
	}
}

func stateDir(cfg config.Storage) (string, error) {
	if cfg.Directory != "" {
		return cfg.Directory, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}

	return filepath.Join(home, ".session-client", "state"), nil
}

func valkeyClientFromConfig(cfg *config.Config) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.ValKey.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.ValKey.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}
