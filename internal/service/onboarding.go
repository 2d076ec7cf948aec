package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/provision"
	"github.com/tavern-tools/register/internal/session"
	"github.com/tavern-tools/register/internal/store"
	"github.com/tavern-tools/register/internal/utils"
	"github.com/tavern-tools/register/models"
)

// Input length bounds.
const (
	maxHandleLength   = 64
	maxPasswordLength = 128
	maxInviteLength   = 32
)

// Outcome tags what a completed OAuth callback resulted in.
type Outcome string

const (
	// OutcomeLoggedIn means the identity mapped onto an existing account.
	OutcomeLoggedIn Outcome = "logged_in"
	// OutcomeInviteRequired means the identity resolved but registration is
	// gated and the session now waits for an invite code.
	OutcomeInviteRequired Outcome = "invite_required"
	// OutcomeCreated means a fresh account was created with a generated
	// password parked for one-time retrieval.
	OutcomeCreated Outcome = "created"
)

// OAuthResult is the output of a completed authorization-code callback.
type OAuthResult struct {
	Outcome Outcome
	User    models.User
}

// ManualRegistration is the input of the registration form.
type ManualRegistration struct {
	Handle      string
	DisplayName string
	Password    string
	InviteCode  string
	OriginIP    string
}

// StatusView is the session's public self-description.
type StatusView struct {
	State          session.State `json:"state"`
	Handle         string        `json:"handle,omitempty"`
	DisplayName    string        `json:"displayName,omitempty"`
	Status         string        `json:"registrationStatus,omitempty"`
	ServerID       *int64        `json:"serverId,omitempty"`
	Provider       string        `json:"provider,omitempty"`
	HasCredentials bool          `json:"hasCredentials"`
}

// PublicConfig is the anonymous bootstrap answer for registration pages.
type PublicConfig struct {
	RequireInviteCode bool     `json:"requireInviteCode"`
	EnableManualLogin bool     `json:"enableManualLogin"`
	OAuthProviders    []string `json:"oauthProviders"`
}

// OnboardingService orchestrates the whole signup path: registration or
// federated login, the optional invite gate, server selection and the remote
// provisioning handshake.
type OnboardingService struct {
	users    store.UserRepository
	servers  store.ServerRepository
	settings store.SettingsRepository

	invites     *InviteService
	sessions    session.Store
	federation  Federation
	provisioner Provisioner

	requireInvite bool
	baseURL       string
	seedPolicy    models.GuildPolicy

	log *logger.Logger
	now func() time.Time
}

// OnboardingDeps carries the orchestrator's collaborators.
type OnboardingDeps struct {
	Users    store.UserRepository
	Servers  store.ServerRepository
	Settings store.SettingsRepository

	Invites     *InviteService
	Sessions    session.Store
	Federation  Federation
	Provisioner Provisioner

	RequireInvite bool
	BaseURL       string
	SeedPolicy    models.GuildPolicy

	Log *logger.Logger
}

// NewOnboardingService wires the orchestrator.
func NewOnboardingService(deps OnboardingDeps) *OnboardingService {
	return &OnboardingService{
		users:         deps.Users,
		servers:       deps.Servers,
		settings:      deps.Settings,
		invites:       deps.Invites,
		sessions:      deps.Sessions,
		federation:    deps.Federation,
		provisioner:   deps.Provisioner,
		requireInvite: deps.RequireInvite,
		baseURL:       deps.BaseURL,
		seedPolicy:    deps.SeedPolicy,
		log:           deps.Log,
		now:           time.Now,
	}
}

// PublicConfig reports the feature switches the registration page needs.
func (s *OnboardingService) PublicConfig(ctx context.Context) (PublicConfig, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return PublicConfig{}, fmt.Errorf("error loading settings: %w", err)
	}

	return PublicConfig{
		RequireInviteCode: s.requireInvite,
		EnableManualLogin: settings.EnableManualLogin,
		OAuthProviders:    s.federation.EnabledProviders(),
	}, nil
}

// guildPolicy returns the effective community membership policy: the saved
// settings win, the environment-seeded values apply until an administrator
// saves anything.
func (s *OnboardingService) guildPolicy(ctx context.Context) models.GuildPolicy {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("error loading settings, falling back to seed guild policy")
		return s.seedPolicy
	}
	if settings.DiscordPolicy.Enabled() {
		return settings.DiscordPolicy
	}

	return s.seedPolicy
}

// RegisterManual creates an account from the registration form and moves the
// session to the server-selection step. The invite code, when the gate is
// on, is validated before the account exists and burned after.
func (s *OnboardingService) RegisterManual(ctx context.Context, sess *session.Session, reg ManualRegistration) (models.User, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("error loading settings: %w", err)
	}
	if !settings.EnableManualLogin {
		return models.User{}, ErrManualLoginDisabled
	}

	if err := validateRegistration(reg); err != nil {
		return models.User{}, err
	}

	handle := NormalizeHandle(reg.Handle)
	if handle == "" {
		return models.User{}, fmt.Errorf("%w: handle contains no usable characters", ErrValidation)
	}

	if s.requireInvite {
		if _, err := s.invites.Validate(ctx, reg.InviteCode); err != nil {
			return models.User{}, err
		}
	}

	if existing, err := s.users.FindUserByHandle(ctx, handle); err == nil {
		return models.User{}, handleTakenError(existing)
	} else if !errors.Is(err, store.ErrNoUserWasFound) {
		return models.User{}, fmt.Errorf("error checking handle: %w", err)
	}

	displayName := reg.DisplayName
	if displayName == "" {
		displayName = reg.Handle
	}

	// A registration without a password gets a generated one, revealed to
	// the user exactly once after server binding.
	password := reg.Password
	generated := false
	if password == "" {
		password, err = utils.GeneratePassword()
		if err != nil {
			return models.User{}, fmt.Errorf("error generating password: %w", err)
		}
		generated = true
	}

	user, err := s.createUser(ctx, models.User{
		Handle:             handle,
		DisplayName:        displayName,
		RegistrationMethod: models.MethodManual,
		InviteCodeUsed:     normalizeCode(reg.InviteCode),
		OriginIP:           reg.OriginIP,
	}, password)
	if err != nil {
		return models.User{}, err
	}

	s.consumeInvite(ctx, reg.InviteCode, handle)

	sess.ToPendingSelection(handle)
	if generated {
		sess.Credentials = &session.TempCredentials{Handle: handle, Password: password}
	}

	logger.FromContext(ctx).Info().Str("handle", handle).Msg("manual registration completed")

	return user, nil
}

// LoginManual authenticates a password login and attaches the account to
// the session. Missing accounts and wrong passwords produce the same error.
func (s *OnboardingService) LoginManual(ctx context.Context, sess *session.Session, handle, password string) (models.User, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("error loading settings: %w", err)
	}
	if !settings.EnableManualLogin {
		return models.User{}, ErrManualLoginDisabled
	}

	user, err := s.users.FindUserByHandle(ctx, NormalizeHandle(handle))
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return models.User{}, ErrBadCredentials
		}
		return models.User{}, fmt.Errorf("error looking up user: %w", err)
	}

	if user.IsOAuth() {
		return models.User{}, ErrWrongLoginMethod
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.CredentialHash), []byte(password)); err != nil {
		return models.User{}, ErrBadCredentials
	}

	if user.RegistrationStatus == models.StatusActive {
		sess.ToActive(user.Handle)
	} else {
		sess.ToPendingSelection(user.Handle)
	}

	return user, nil
}

// BeginOAuth starts the authorization-code handshake: it mints a state
// token, parks it on the session and returns the provider redirect URL.
// requestBase is the externally visible base URL of the current request; a
// configured base URL overrides it.
func (s *OnboardingService) BeginOAuth(ctx context.Context, sess *session.Session, provider, requestBase string) (string, error) {
	base := s.baseURL
	if base == "" {
		base = requestBase
	}

	state, err := utils.GenerateStateToken()
	if err != nil {
		return "", fmt.Errorf("error generating state token: %w", err)
	}

	redirectURL, err := s.federation.BeginAuthorization(provider, state, callbackURL(base, provider))
	if err != nil {
		return "", err
	}

	sess.ToOAuthInFlight(session.OAuthHandshake{
		State:    state,
		Provider: provider,
		BaseURL:  base,
	})

	return redirectURL, nil
}

// CompleteOAuth finishes the callback leg. The state comparison happens
// before anything is sent upstream; a mismatch aborts with no network
// traffic. Depending on what the resolved identity maps to, the result is a
// returning login, a parked identity awaiting an invite code, or a freshly
// created account with one-time credentials.
func (s *OnboardingService) CompleteOAuth(ctx context.Context, sess *session.Session, provider, code, state, originIP string) (OAuthResult, error) {
	if sess.State != session.StateOAuthInFlight || sess.OAuth == nil || sess.OAuth.Provider != provider {
		return OAuthResult{}, fmt.Errorf("%w: no oauth handshake in flight for %s", ErrSessionState, provider)
	}
	if state == "" || sess.OAuth.State != state {
		return OAuthResult{}, ErrStateMismatch
	}

	redirectURL := callbackURL(sess.OAuth.BaseURL, provider)

	accessToken, err := s.federation.CompleteAuthorization(ctx, provider, code, redirectURL)
	if err != nil {
		return OAuthResult{}, err
	}

	identity, err := s.federation.FetchIdentity(ctx, provider, accessToken, s.guildPolicy(ctx))
	if err != nil {
		return OAuthResult{}, err
	}

	// Some providers report no username; the numeric account id still makes
	// a usable handle.
	handle := NormalizeHandle(identity.Username)
	if handle == "" {
		handle = NormalizeHandle(identity.ID)
	}
	if handle == "" {
		return OAuthResult{}, fmt.Errorf("%w: provider identity yields an empty handle", ErrValidation)
	}

	// Returning login: an account under this handle already exists, so the
	// invite gate and account creation are skipped entirely.
	if existing, err := s.users.FindUserByHandle(ctx, handle); err == nil {
		if existing.RegistrationStatus == models.StatusActive {
			sess.ToActive(existing.Handle)
		} else {
			sess.ToPendingSelection(existing.Handle)
		}
		return OAuthResult{Outcome: OutcomeLoggedIn, User: existing}, nil
	} else if !errors.Is(err, store.ErrNoUserWasFound) {
		return OAuthResult{}, fmt.Errorf("error checking handle: %w", err)
	}

	identityRecord := session.PendingIdentity{
		Handle:      handle,
		DisplayName: displayNameOf(identity),
		Provider:    provider,
		OAuthID:     identity.ID,
	}

	if s.requireInvite {
		sess.ToInviteRequired(identityRecord)
		return OAuthResult{Outcome: OutcomeInviteRequired}, nil
	}

	user, err := s.createOAuthUser(ctx, sess, identityRecord, "", originIP)
	if err != nil {
		return OAuthResult{}, err
	}

	return OAuthResult{Outcome: OutcomeCreated, User: user}, nil
}

// SubmitInvite redeems an invite code for a parked federated identity and
// creates the account.
func (s *OnboardingService) SubmitInvite(ctx context.Context, sess *session.Session, code, originIP string) (models.User, error) {
	if sess.State != session.StateInviteRequired || sess.Identity == nil {
		return models.User{}, fmt.Errorf("%w: no identity awaiting an invite code", ErrSessionState)
	}
	if len(code) > maxInviteLength {
		return models.User{}, fmt.Errorf("%w: invite code too long", ErrValidation)
	}

	if _, err := s.invites.Validate(ctx, code); err != nil {
		return models.User{}, err
	}

	user, err := s.createOAuthUser(ctx, sess, *sess.Identity, normalizeCode(code), originIP)
	if err != nil {
		return models.User{}, err
	}

	s.consumeInvite(ctx, code, user.Handle)

	return user, nil
}

// createOAuthUser creates the account behind a resolved federated identity
// with a generated password, parks the one-time credentials on the session
// and advances it to server selection.
func (s *OnboardingService) createOAuthUser(ctx context.Context, sess *session.Session, identity session.PendingIdentity, inviteCode, originIP string) (models.User, error) {
	password, err := utils.GeneratePassword()
	if err != nil {
		return models.User{}, fmt.Errorf("error generating password: %w", err)
	}

	user, err := s.createUser(ctx, models.User{
		Handle:             identity.Handle,
		DisplayName:        identity.DisplayName,
		RegistrationMethod: models.OAuthMethod(identity.Provider),
		OAuthID:            identity.OAuthID,
		InviteCodeUsed:     inviteCode,
		OriginIP:           originIP,
	}, password)
	if err != nil {
		return models.User{}, err
	}

	sess.ToPendingSelection(user.Handle)
	sess.Credentials = &session.TempCredentials{Handle: user.Handle, Password: password}

	logger.FromContext(ctx).Info().Str("handle", user.Handle).Str("provider", identity.Provider).Msg("oauth registration completed")

	return user, nil
}

// createUser hashes the password and persists the account in the
// pending-selection state. The plaintext rides along until server binding
// succeeds; the remote provisioning handshake needs it in the clear.
func (s *OnboardingService) createUser(ctx context.Context, user models.User, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("error hashing password: %w", err)
	}

	user.CredentialHash = string(hash)
	user.CredentialPlain = password
	user.RegistrationStatus = models.StatusPendingSelection
	user.CreatedAt = s.now()

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrHandleAlreadyExists) {
			if existing, findErr := s.users.FindUserByHandle(ctx, user.Handle); findErr == nil {
				return models.User{}, handleTakenError(existing)
			}
			return models.User{}, ErrHandleTaken
		}
		return models.User{}, fmt.Errorf("error creating user: %w", err)
	}

	return created, nil
}

// consumeInvite burns the code best-effort: the account exists by now, so a
// bookkeeping failure is logged and swallowed rather than undoing it.
func (s *OnboardingService) consumeInvite(ctx context.Context, code, handle string) {
	if !s.requireInvite || normalizeCode(code) == "" {
		return
	}
	if err := s.invites.Consume(ctx, code, handle); err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("handle", handle).Msg("error consuming invite code after registration")
	}
}

// BindServer provisions the pending account onto the chosen server and
// promotes it to active. The remote create runs on a context detached from
// the request so a client disconnect cannot cancel it mid-handshake.
func (s *OnboardingService) BindServer(ctx context.Context, sess *session.Session, serverID int64) (models.User, error) {
	if sess.State != session.StatePendingSelection || sess.UserHandle == "" {
		if sess.State == session.StateActive {
			return models.User{}, ErrUserAlreadyBound
		}
		return models.User{}, fmt.Errorf("%w: no pending account on this session", ErrSessionState)
	}
	if serverID == 0 {
		return models.User{}, ErrNoServerSelected
	}

	user, err := s.users.FindUserByHandle(ctx, sess.UserHandle)
	if err != nil {
		return models.User{}, fmt.Errorf("error loading pending user: %w", err)
	}
	if user.RegistrationStatus == models.StatusActive {
		sess.ToActive(user.Handle)
		return models.User{}, ErrUserAlreadyBound
	}

	server, err := s.servers.FindServerByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, store.ErrNoServerWasFound) {
			return models.User{}, ErrServerUnavailable
		}
		return models.User{}, fmt.Errorf("error loading server: %w", err)
	}
	if !server.IsActive {
		return models.User{}, ErrServerUnavailable
	}

	// Once the remote create goes out it cannot be compensated, so the rest
	// of the operation must not die with the client connection.
	detached := context.WithoutCancel(ctx)

	err = s.provisioner.ProvisionUser(detached, server, provision.CreateUserRequest{
		Handle:   user.Handle,
		Name:     user.DisplayName,
		Password: user.CredentialPlain,
	})
	if err != nil {
		return models.User{}, err
	}

	activated, err := s.users.ActivateUser(detached, user.Handle, server.ID)
	if err != nil {
		// The remote account exists but the local record still says pending.
		// This inconsistency needs manual reconciliation, hence the loud log.
		logger.FromContext(ctx).Error().Err(err).
			Str("handle", user.Handle).
			Int64("server_id", server.ID).
			Msg("remote account created but local activation failed, manual reconciliation required")
		return models.User{}, fmt.Errorf("error activating user after remote provisioning: %w", err)
	}

	sess.ToActive(activated.Handle)

	logger.FromContext(ctx).Info().Str("handle", activated.Handle).Str("server", server.Name).Msg("account bound to server")

	return activated, nil
}

// Status describes the session and its account, if any.
func (s *OnboardingService) Status(ctx context.Context, sess *session.Session) (StatusView, error) {
	view := StatusView{
		State:          sess.State,
		HasCredentials: sess.Credentials != nil,
	}

	if sess.State == session.StateOAuthInFlight && sess.OAuth != nil {
		view.Provider = sess.OAuth.Provider
	}
	if sess.State == session.StateInviteRequired && sess.Identity != nil {
		view.Handle = sess.Identity.Handle
		view.DisplayName = sess.Identity.DisplayName
		view.Provider = sess.Identity.Provider
	}

	if sess.UserHandle == "" {
		return view, nil
	}

	user, err := s.users.FindUserByHandle(ctx, sess.UserHandle)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return view, nil
		}
		return StatusView{}, fmt.Errorf("error loading user: %w", err)
	}

	view.Handle = user.Handle
	view.DisplayName = user.DisplayName
	view.Status = user.RegistrationStatus
	view.ServerID = user.ServerID
	view.Provider = user.OAuthProvider()

	return view, nil
}

// AvailableServers lists the active servers with their registered-user
// counts. Administrator credentials never appear in the summaries.
func (s *OnboardingService) AvailableServers(ctx context.Context) ([]models.ServerSummary, error) {
	servers, err := s.servers.ListActiveServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing servers: %w", err)
	}

	counts, err := s.users.CountByServer(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users per server: %w", err)
	}

	summaries := make([]models.ServerSummary, 0, len(servers))
	for _, server := range servers {
		summaries = append(summaries, models.ServerSummary{
			ID:                  server.ID,
			Name:                server.Name,
			URL:                 server.URL,
			Description:         server.Description,
			Provider:            server.Provider,
			Maintainer:          server.Maintainer,
			Contact:             server.Contact,
			Announcement:        server.Announcement,
			RegisteredUserCount: counts[server.ID],
		})
	}

	return summaries, nil
}

// RevealCredentials atomically reads and clears the session's one-time
// credentials; the second call fails.
func (s *OnboardingService) RevealCredentials(token string) (session.TempCredentials, error) {
	creds, ok := s.sessions.TakeCredentials(token)
	if !ok {
		return session.TempCredentials{}, ErrCredentialsAlreadyRead
	}

	return creds, nil
}

func validateRegistration(reg ManualRegistration) error {
	switch {
	case reg.Handle == "":
		return fmt.Errorf("%w: handle is required", ErrValidation)
	case len(reg.Handle) > maxHandleLength:
		return fmt.Errorf("%w: handle too long", ErrValidation)
	case len(reg.DisplayName) > maxHandleLength:
		return fmt.Errorf("%w: display name too long", ErrValidation)
	case len(reg.Password) > maxPasswordLength:
		return fmt.Errorf("%w: password too long", ErrValidation)
	case len(reg.InviteCode) > maxInviteLength:
		return fmt.Errorf("%w: invite code too long", ErrValidation)
	}

	return nil
}

// handleTakenError reports the conflict with the method and time of the
// existing registration, which the page uses to steer the user.
func handleTakenError(existing models.User) error {
	return fmt.Errorf("%w: registered via %s on %s", ErrHandleTaken,
		existing.RegistrationMethod, existing.CreatedAt.Format(time.RFC3339))
}

func callbackURL(base, provider string) string {
	return base + "/oauth/callback/" + provider
}

func displayNameOf(identity models.Identity) string {
	if identity.DisplayName != "" {
		return identity.DisplayName
	}
	return identity.Username
}
