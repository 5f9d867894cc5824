package exchange

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/session-client/internal/config"
)

// NewHTTPClient builds the client used to reach the token endpoint according
// to the configured client authentication.
func NewHTTPClient(cfg config.Exchange) (*http.Client, error) {
	clientID := cfg.ClientAuth.ClientID

	switch cfg.ClientAuth.Type {
	case config.ClientAuthMTLS:
		tlsConfig, err := commoncfg.LoadMTLSConfig(cfg.ClientAuth.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading mTLS config: %w", err)
		}

		return &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}, nil
	case config.ClientAuthClientSecret:
		secret, err := commoncfg.LoadValueFromSourceRef(cfg.ClientAuth.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("loading client secret: %w", err)
		}

		return &http.Client{
			Timeout: cfg.Timeout,
			Transport: &clientAuthRoundTripper{
				clientID:     clientID,
				clientSecret: string(secret),
				next:         http.DefaultTransport,
			},
		}, nil
	case config.ClientAuthInsecure, "":
		return &http.Client{Timeout: cfg.Timeout}, nil
	default:
		return nil, errors.New("unknown Client Auth type")
	}
}

// clientAuthRoundTripper authenticates the client with HTTP basic
// authentication (client_secret_basic).
type clientAuthRoundTripper struct {
	clientID     string
	clientSecret string
	next         http.RoundTripper
}

func (t *clientAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.SetBasicAuth(t.clientID, t.clientSecret)

	return t.next.RoundTrip(out)
}
