package exchange

import (
	"context"

	"github.com/openkcm/session-client/internal/oidc"
)

// DiscoveredEndpoint looks the token endpoint up in the issuer's openid
// configuration.
type DiscoveredEndpoint struct {
	Discovery *oidc.Discovery
	IssuerURL string
}

func (e DiscoveredEndpoint) TokenEndpoint(ctx context.Context) (string, error) {
	return e.Discovery.TokenEndpoint(ctx, e.IssuerURL)
}
