package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/go-resty/resty/v2"

	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/models"
)

// Client drives the three-legged OAuth flow against the configured
// federation providers. It holds one resty client shared across providers;
// per-provider credentials come from configuration at call time.
type Client struct {
	cfg        config.OAuth
	httpClient *resty.Client
	providers  map[string]Provider
}

// NewClient builds the federation client from the OAuth configuration
// section. Providers left unconfigured stay registered but reject use with
// ErrProviderNotConfigured.
func NewClient(cfg config.OAuth) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: resty.New(),
		providers: map[string]Provider{
			"github":  githubProvider{},
			"discord": discordProvider{},
			"linuxdo": newLinuxDoProvider(cfg.LinuxDoAuthURL, cfg.LinuxDoTokenURL, cfg.LinuxDoUserInfoURL),
		},
	}
}

// EnabledProviders returns the names of providers that are enabled and carry
// full credentials, sorted for stable output.
func (c *Client) EnabledProviders() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		if c.credentials(name).Configured() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Client) credentials(name string) config.Provider {
	switch name {
	case "github":
		return c.cfg.GitHub
	case "discord":
		return c.cfg.Discord
	case "linuxdo":
		return c.cfg.LinuxDo
	default:
		return config.Provider{}
	}
}

func (c *Client) provider(name string) (Provider, config.Provider, error) {
	p, ok := c.providers[name]
	if !ok {
		return nil, config.Provider{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	creds := c.credentials(name)
	if !creds.Configured() {
		return nil, config.Provider{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
	}

	return p, creds, nil
}

// BeginAuthorization builds the provider's authorization redirect URL. The
// state token binds the eventual callback to the session that started the
// flow; redirectURL must match the callback route this service serves.
func (c *Client) BeginAuthorization(providerName, state, redirectURL string) (string, error) {
	p, creds, err := c.provider(providerName)
	if err != nil {
		return "", err
	}

	endpoints := p.Endpoints()

	query := url.Values{}
	query.Set("client_id", creds.ClientID)
	query.Set("redirect_uri", redirectURL)
	query.Set("response_type", "code")
	query.Set("scope", endpoints.Scope)
	query.Set("state", state)

	return endpoints.AuthURL + "?" + query.Encode(), nil
}

// CompleteAuthorization exchanges the callback code for an access token.
func (c *Client) CompleteAuthorization(ctx context.Context, providerName, code, redirectURL string) (string, error) {
	p, creds, err := c.provider(providerName)
	if err != nil {
		return "", err
	}

	log := logger.FromContext(ctx)

	var token struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{
			"client_id":     creds.ClientID,
			"client_secret": creds.ClientSecret,
			"code":          code,
			"redirect_uri":  redirectURL,
			"grant_type":    "authorization_code",
		}).
		Post(p.Endpoints().TokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}

	if resp.IsError() {
		log.Error().Str("provider", providerName).Int("status", resp.StatusCode()).Str("body", string(resp.Body())).Msg("token exchange rejected")
		return "", fmt.Errorf("%w: status %d: %s", ErrTokenExchangeFailed, resp.StatusCode(), resp.Body())
	}

	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return "", fmt.Errorf("%w: error decoding token response: %w", ErrTokenExchangeFailed, err)
	}
	if token.AccessToken == "" {
		log.Error().Str("provider", providerName).Str("oauth-error", token.Error).Msg("token exchange returned no access token")
		return "", fmt.Errorf("%w: empty access token", ErrTokenExchangeFailed)
	}

	return token.AccessToken, nil
}

// FetchIdentity loads the provider profile behind the access token,
// normalizes it, and enforces the provider's membership policy.
func (c *Client) FetchIdentity(ctx context.Context, providerName, accessToken string, policy models.GuildPolicy) (models.Identity, error) {
	p, _, err := c.provider(providerName)
	if err != nil {
		return models.Identity{}, err
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", p.AuthorizationHeader(accessToken)).
		Get(p.Endpoints().UserInfoURL)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrIdentityFetchFailed, err)
	}
	if resp.IsError() {
		return models.Identity{}, fmt.Errorf("%w: status %d", ErrIdentityFetchFailed, resp.StatusCode())
	}

	identity, err := p.Normalize(resp.Body())
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrIdentityFetchFailed, err)
	}
	if identity.ID == "" {
		return models.Identity{}, fmt.Errorf("%w: profile carries no stable id", ErrIdentityFetchFailed)
	}

	if err := p.CheckMembership(ctx, c.httpClient, accessToken, policy); err != nil {
		return models.Identity{}, err
	}

	return identity, nil
}
