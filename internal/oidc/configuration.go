package oidc

import "slices"

const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// Configuration is the part of the well-known openid configuration the client
// reads. See https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
type Configuration struct {
	Issuer              string   `json:"issuer,omitempty"`
	TokenEndpoint       string   `json:"token_endpoint,omitempty"`
	GrantTypesSupported []string `json:"grant_types_supported,omitempty"`
}

// SupportsGrant reports whether the issuer advertises grant. Issuers that
// list no grant types are assumed to support it.
func (c Configuration) SupportsGrant(grant string) bool {
	return len(c.GrantTypesSupported) == 0 || slices.Contains(c.GrantTypesSupported, grant)
}
