// Package exchange talks to an OAuth2 token endpoint to obtain token pairs
// for the session.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/serviceerr"
	"github.com/openkcm/session-client/internal/session"
)

const (
	grantPassword     = "password"
	grantRefreshToken = "refresh_token"

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 4 << 10
)

// Endpoint resolves the token endpoint URL.
type Endpoint interface {
	TokenEndpoint(ctx context.Context) (string, error)
}

// StaticEndpoint is a configured token endpoint URL.
type StaticEndpoint string

func (e StaticEndpoint) TokenEndpoint(context.Context) (string, error) {
	if e == "" {
		return "", errors.New("no token endpoint configured")
	}
	return string(e), nil
}

// Client exchanges credentials and refresh tokens for token pairs.
type Client struct {
	httpClient *http.Client
	endpoint   Endpoint
	clientID   string
	scopes     []string
}

var _ session.Exchanger = (*Client)(nil)

func NewClient(httpClient *http.Client, endpoint Endpoint, clientID string, scopes []string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		clientID:   clientID,
		scopes:     scopes,
	}
}

// GetAccess performs a resource owner password credentials grant.
func (c *Client) GetAccess(ctx context.Context, creds session.Credentials) (session.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", grantPassword)
	data.Set("username", creds.Username)
	data.Set("password", creds.Password)
	if len(c.scopes) > 0 {
		data.Set("scope", strings.Join(c.scopes, " "))
	}

	return c.exchange(ctx, data)
}

// GetRefresh performs a refresh token grant.
func (c *Client) GetRefresh(ctx context.Context, refreshToken string) (session.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", grantRefreshToken)
	data.Set("refresh_token", refreshToken)

	return c.exchange(ctx, data)
}

func (c *Client) exchange(ctx context.Context, data url.Values) (session.TokenResponse, error) {
	if c.clientID != "" {
		data.Set("client_id", c.clientID)
	}

	tokenEndpoint, err := c.endpoint.TokenEndpoint(ctx)
	if err != nil {
		return session.TokenResponse{}, errors.Join(serviceerr.ErrExchangeFailed, fmt.Errorf("resolving token endpoint: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return session.TokenResponse{}, errors.Join(serviceerr.ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return session.TokenResponse{}, errors.Join(serviceerr.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp)
		slogctx.Warn(ctx, "Token endpoint rejected the grant",
			"grant_type", data.Get("grant_type"), "status", resp.StatusCode, "error", err)
		return session.TokenResponse{}, errors.Join(serviceerr.ErrExchangeFailed, err)
	}

	var tokens session.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return session.TokenResponse{}, errors.Join(serviceerr.ErrExchangeFailed, fmt.Errorf("decoding token response: %w", err))
	}

	return tokens, nil
}

// oauthError is the RFC 6749 error response body.
type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var oerr oauthError
	if err := json.Unmarshal(body, &oerr); err == nil && oerr.Code != "" {
		if oerr.Description != "" {
			return fmt.Errorf("token endpoint returned status %d: %s: %s", resp.StatusCode, oerr.Code, oerr.Description)
		}
		return fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, oerr.Code)
	}

	return fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
}
