package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tavern-tools/register/models"
)

// Endpoints describes one provider's OAuth surface.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	Scope       string
}

// Provider is one federated identity source. The set of implementations is
// closed: github, discord and linuxdo. Each knows its endpoints, its
// authorization header scheme, how to map its profile JSON onto the
// normalized identity, and (for discord) the community membership policy.
type Provider interface {
	Name() string
	Endpoints() Endpoints

	// AuthorizationHeader returns the Authorization header value carrying
	// the access token for profile requests.
	AuthorizationHeader(accessToken string) string

	// Normalize maps the provider's raw profile JSON onto the shared
	// identity shape.
	Normalize(raw []byte) (models.Identity, error)

	// CheckMembership applies the provider-specific membership policy.
	// Providers without such a policy return nil unconditionally.
	CheckMembership(ctx context.Context, httpClient *resty.Client, accessToken string, policy models.GuildPolicy) error
}

// ─────────────────────────────────────────────
// GitHub
// ─────────────────────────────────────────────

type githubProvider struct{}

func (githubProvider) Name() string { return "github" }

func (githubProvider) Endpoints() Endpoints {
	return Endpoints{
		AuthURL:     "https://github.com/login/oauth/authorize",
		TokenURL:    "https://github.com/login/oauth/access_token",
		UserInfoURL: "https://api.github.com/user",
		Scope:       "read:user",
	}
}

// GitHub still honours the legacy "token" scheme for OAuth app tokens.
func (githubProvider) AuthorizationHeader(accessToken string) string {
	return "token " + accessToken
}

func (githubProvider) Normalize(raw []byte) (models.Identity, error) {
	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return models.Identity{}, fmt.Errorf("error decoding github profile: %w", err)
	}

	displayName := profile.Name
	if displayName == "" {
		displayName = profile.Login
	}

	return models.Identity{
		ID:          fmt.Sprintf("%d", profile.ID),
		Username:    profile.Login,
		DisplayName: displayName,
		Email:       profile.Email,
	}, nil
}

func (githubProvider) CheckMembership(context.Context, *resty.Client, string, models.GuildPolicy) error {
	return nil
}

// ─────────────────────────────────────────────
// Discord
// ─────────────────────────────────────────────

// discordAPIBaseURL is a variable so tests can aim the provider at a fake.
var discordAPIBaseURL = "https://discord.com/api"

type discordProvider struct{}

func (discordProvider) Name() string { return "discord" }

func (discordProvider) Endpoints() Endpoints {
	return Endpoints{
		AuthURL:     discordAPIBaseURL + "/oauth2/authorize",
		TokenURL:    discordAPIBaseURL + "/oauth2/token",
		UserInfoURL: discordAPIBaseURL + "/users/@me",
		Scope:       "identify guilds guilds.members.read",
	}
}

func (discordProvider) AuthorizationHeader(accessToken string) string {
	return "Bearer " + accessToken
}

func (discordProvider) Normalize(raw []byte) (models.Identity, error) {
	var profile struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Email      string `json:"email"`
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return models.Identity{}, fmt.Errorf("error decoding discord profile: %w", err)
	}

	displayName := profile.GlobalName
	if displayName == "" {
		displayName = profile.Username
	}

	return models.Identity{
		ID:          profile.ID,
		Username:    profile.Username,
		DisplayName: displayName,
		Email:       profile.Email,
	}, nil
}

// CheckMembership enforces the required-guild policy: the user must hold a
// membership record in the configured guild, and the membership must be at
// least MinJoinDays old. Resolving an identity with the policy configured is
// only valid once this passes.
func (discordProvider) CheckMembership(ctx context.Context, httpClient *resty.Client, accessToken string, policy models.GuildPolicy) error {
	if !policy.Enabled() {
		return nil
	}

	resp, err := httpClient.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+accessToken).
		Get(discordAPIBaseURL + "/users/@me/guilds/" + policy.RequiredGuildID + "/member")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMembershipCheckFailed, err)
	}

	if resp.StatusCode() == 404 {
		return ErrNotAMember
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrMembershipCheckFailed, resp.StatusCode())
	}

	if policy.MinJoinDays <= 0 {
		return nil
	}

	var member struct {
		JoinedAt time.Time `json:"joined_at"`
	}
	if err := json.Unmarshal(resp.Body(), &member); err != nil {
		return fmt.Errorf("%w: error decoding member record: %w", ErrMembershipCheckFailed, err)
	}
	if member.JoinedAt.IsZero() {
		return nil
	}

	days := int(time.Since(member.JoinedAt).Hours() / 24)
	if days < policy.MinJoinDays {
		return fmt.Errorf("%w: joined %d days ago, %d required", ErrMembershipTooRecent, days, policy.MinJoinDays)
	}

	return nil
}

// ─────────────────────────────────────────────
// Linux.do
// ─────────────────────────────────────────────

// linuxdoProvider differs from the others in that its endpoints can be
// overridden from configuration for self-hosted forks.
type linuxdoProvider struct {
	endpoints Endpoints
}

func newLinuxDoProvider(authURL, tokenURL, userInfoURL string) linuxdoProvider {
	endpoints := Endpoints{
		AuthURL:     "https://connect.linux.do/oauth2/authorize",
		TokenURL:    "https://connect.linux.do/oauth2/token",
		UserInfoURL: "https://connect.linux.do/api/user",
		Scope:       "read",
	}
	if authURL != "" {
		endpoints.AuthURL = authURL
	}
	if tokenURL != "" {
		endpoints.TokenURL = tokenURL
	}
	if userInfoURL != "" {
		endpoints.UserInfoURL = userInfoURL
	}

	return linuxdoProvider{endpoints: endpoints}
}

func (linuxdoProvider) Name() string { return "linuxdo" }

func (p linuxdoProvider) Endpoints() Endpoints { return p.endpoints }

func (linuxdoProvider) AuthorizationHeader(accessToken string) string {
	return "Bearer " + accessToken
}

func (linuxdoProvider) Normalize(raw []byte) (models.Identity, error) {
	var profile struct {
		ID       json.Number `json:"id"`
		UserID   json.Number `json:"user_id"`
		Username string      `json:"username"`
		Name     string      `json:"name"`
		Email    string      `json:"email"`
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return models.Identity{}, fmt.Errorf("error decoding linuxdo profile: %w", err)
	}

	id := profile.ID.String()
	if id == "" {
		id = profile.UserID.String()
	}
	username := profile.Username
	if username == "" {
		username = profile.Name
	}
	displayName := profile.Name
	if displayName == "" {
		displayName = profile.Username
	}

	return models.Identity{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		Email:       profile.Email,
	}, nil
}

func (linuxdoProvider) CheckMembership(context.Context, *resty.Client, string, models.GuildPolicy) error {
	return nil
}
