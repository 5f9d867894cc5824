package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	slogctx "github.com/veqryn/slog-context"
)

const wellKnownPath = "/.well-known/openid-configuration"

var ErrDiscovery = errors.New("discovering openid configuration")

// Discovery fetches and caches the well-known openid configuration of
// issuers.
type Discovery struct {
	client *http.Client
	cache  *cache.Cache
}

// NewDiscovery returns a Discovery that keeps configurations for ttl. A
// non-positive ttl keeps them for the process lifetime.
func NewDiscovery(client *http.Client, ttl time.Duration) *Discovery {
	if client == nil {
		client = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &Discovery{
		client: client,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (d *Discovery) Configuration(ctx context.Context, issuerURL string) (Configuration, error) {
	const wkocPrefix = "wkoc_"

	cacheKey := wkocPrefix + issuerURL
	if cached, ok := d.cache.Get(cacheKey); ok {
		//nolint:forcetypeassert
		return cached.(Configuration), nil
	}

	cfg, err := d.fetch(ctx, issuerURL)
	if err != nil {
		return Configuration{}, errors.Join(ErrDiscovery, err)
	}
	d.cache.SetDefault(cacheKey, cfg)

	return cfg, nil
}

// TokenEndpoint returns the token endpoint advertised by the issuer.
func (d *Discovery) TokenEndpoint(ctx context.Context, issuerURL string) (string, error) {
	cfg, err := d.Configuration(ctx, issuerURL)
	if err != nil {
		return "", err
	}
	if cfg.TokenEndpoint == "" {
		return "", errors.Join(ErrDiscovery, fmt.Errorf("issuer %s advertises no token endpoint", issuerURL))
	}
	for _, grant := range []string{GrantPassword, GrantRefreshToken} {
		if !cfg.SupportsGrant(grant) {
			slogctx.Warn(ctx, "Issuer does not advertise a grant type the client uses",
				"issuer", issuerURL, "grant_type", grant, "grant_types_supported", cfg.GrantTypesSupported)
		}
	}

	return cfg.TokenEndpoint, nil
}

func (d *Discovery) fetch(ctx context.Context, issuerURL string) (Configuration, error) {
	endpoint, err := url.JoinPath(issuerURL, wellKnownPath)
	if err != nil {
		return Configuration{}, fmt.Errorf("making well-known url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Configuration{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Configuration{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Configuration{}, fmt.Errorf("well-known endpoint returned status %d", resp.StatusCode)
	}

	var cfg Configuration
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("decoding openid configuration: %w", err)
	}

	slogctx.Debug(ctx, "Fetched openid configuration", "issuer", cfg.Issuer, "token_endpoint", cfg.TokenEndpoint)

	return cfg, nil
}
