package config

import (
	"time"
)

// Config is the top-level configuration container for the registration
// service. It is populated from environment variables only; the service has
// no flag or file configuration layer.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type Config struct {
	// Server holds network address and timeout settings for the HTTP server.
	Server Server `envPrefix:"SERVER_"`

	// Storage holds the persistence gateway connection settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Admin holds administrator-panel settings: the shared panel password,
	// the configurable panel paths, and brute-force lockout parameters.
	Admin Admin `envPrefix:"ADMIN_"`

	// Session holds end-user session parameters.
	Session Session `envPrefix:"SESSION_"`

	// OAuth holds per-provider federation credentials and enablement flags.
	OAuth OAuth `envPrefix:"OAUTH_"`

	// Workers holds background sweep intervals.
	Workers Workers `envPrefix:"WORKERS_"`

	// RequireInviteCode gates all first-time registration behind a valid
	// invite code when true.
	// Env: REQUIRE_INVITE_CODE
	RequireInviteCode bool `env:"REQUIRE_INVITE_CODE"`

	// BaseRegisterURL is the externally visible base URL of this service,
	// used to build OAuth callback URLs. When empty, the callback base is
	// derived from each incoming request.
	// Env: REGISTER_BASE_URL
	BaseRegisterURL string `env:"REGISTER_BASE_URL"`
}

// Server holds network and timeout settings for the inbound transport layer.
type Server struct {
	// Address is the TCP address on which the HTTP server listens,
	// in "host:port" format.
	// Env: SERVER_ADDRESS
	Address string `env:"ADDRESS" envDefault:"0.0.0.0:3070"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request before the server cancels it. Remote provisioning performs a
	// five-step handshake against a third-party server, so this is generous.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

// Storage holds connection settings for the persistence gateway.
type Storage struct {
	// DSN selects and configures the database backend. A "postgres://"
	// scheme selects PostgreSQL via pgx; anything else is treated as a
	// SQLite file path.
	// Env: STORAGE_DATABASE_URI
	DSN string `env:"DATABASE_URI" envDefault:"register.db"`
}

// Admin holds administrator-panel settings.
type Admin struct {
	// PanelPassword is the shared password protecting the administrator
	// panel. The default exists for local development only; Validate warns
	// loudly when it reaches production unchanged.
	// Env: ADMIN_PANEL_PASSWORD
	PanelPassword string `env:"PANEL_PASSWORD" envDefault:"admin123"`

	// LoginPath and PanelPath are the (deliberately configurable) URL paths
	// of the administrator login page and panel.
	// Env: ADMIN_LOGIN_PATH, ADMIN_PANEL_PATH
	LoginPath string `env:"LOGIN_PATH" envDefault:"/admin/login"`
	PanelPath string `env:"PANEL_PATH" envDefault:"/admin"`

	// MaxLoginAttempts is the number of failed panel logins per client IP
	// before a lockout is imposed.
	// Env: ADMIN_MAX_LOGIN_ATTEMPTS
	MaxLoginAttempts int `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`

	// LockoutTime is how long a locked-out client IP stays blocked.
	// Env: ADMIN_LOGIN_LOCKOUT_TIME
	LockoutTime time.Duration `env:"LOGIN_LOCKOUT_TIME" envDefault:"15m"`

	// TokenSignKey signs the administrator session JWT. Must be kept
	// confidential.
	// Env: ADMIN_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY" envDefault:"register-admin-secret-change-in-production"`

	// TokenDuration is the administrator session lifetime.
	// Env: ADMIN_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION" envDefault:"2h"`
}

// Session holds end-user session parameters.
type Session struct {
	// TTL is the idle lifetime of an onboarding session cookie.
	// Env: SESSION_TTL
	TTL time.Duration `env:"TTL" envDefault:"30m"`

	// CookieSecure marks the session cookie Secure; enable behind HTTPS.
	// Env: SESSION_COOKIE_SECURE
	CookieSecure bool `env:"COOKIE_SECURE"`
}

// OAuth groups per-provider federation settings.
type OAuth struct {
	GitHub  Provider `envPrefix:"GITHUB_"`
	Discord Provider `envPrefix:"DISCORD_"`
	LinuxDo Provider `envPrefix:"LINUXDO_"`

	// LinuxDoAuthURL, LinuxDoTokenURL and LinuxDoUserInfoURL override the
	// default linux.do OAuth endpoints for self-hosted forks.
	// Env: OAUTH_LINUXDO_AUTH_URL, OAUTH_LINUXDO_TOKEN_URL,
	// OAUTH_LINUXDO_USERINFO_URL
	LinuxDoAuthURL     string `env:"LINUXDO_AUTH_URL"`
	LinuxDoTokenURL    string `env:"LINUXDO_TOKEN_URL"`
	LinuxDoUserInfoURL string `env:"LINUXDO_USERINFO_URL"`

	// DiscordRequiredGuildID and DiscordMinJoinDays seed the guild
	// membership policy; the administrator panel can change them at runtime
	// through the settings record.
	// Env: OAUTH_DISCORD_REQUIRED_GUILD_ID, OAUTH_DISCORD_MIN_JOIN_DAYS
	DiscordRequiredGuildID string `env:"DISCORD_REQUIRED_GUILD_ID"`
	DiscordMinJoinDays     int    `env:"DISCORD_MIN_JOIN_DAYS"`
}

// Provider holds one OAuth provider's client credentials and enablement flag.
type Provider struct {
	// Enabled turns the provider's login entry point on.
	// Env: OAUTH_<PROVIDER>_ENABLED
	Enabled bool `env:"ENABLED"`

	// ClientID and ClientSecret are the application credentials registered
	// with the provider.
	// Env: OAUTH_<PROVIDER>_CLIENT_ID, OAUTH_<PROVIDER>_CLIENT_SECRET
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Configured reports whether the provider is enabled and carries full
// credentials.
func (p Provider) Configured() bool {
	return p.Enabled && p.ClientID != "" && p.ClientSecret != ""
}

// Workers holds background sweep intervals.
type Workers struct {
	// CleanupInterval is how often expired sessions and stale login-attempt
	// records are swept.
	// Env: WORKERS_CLEANUP_INTERVAL
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}
