package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/limiter"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/provision"
	"github.com/tavern-tools/register/internal/service"
	"github.com/tavern-tools/register/internal/session"
	"github.com/tavern-tools/register/internal/store"
	"github.com/tavern-tools/register/models"
)

// ─────────────────────────────────────────────
// Map-backed fake repositories
// ─────────────────────────────────────────────

type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]models.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]models.User{}, nextID: 1}
}

func (m *memUserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Handle]; ok {
		return models.User{}, store.ErrHandleAlreadyExists
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Handle] = user
	return user, nil
}

func (m *memUserRepo) FindUserByHandle(ctx context.Context, handle string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[handle]
	if !ok {
		return models.User{}, store.ErrNoUserWasFound
	}
	return user, nil
}

func (m *memUserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, user)
	}
	return out, nil
}

func (m *memUserRepo) ActivateUser(ctx context.Context, handle string, serverID int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[handle]
	if !ok {
		return models.User{}, store.ErrNoUserWasFound
	}
	if user.RegistrationStatus == models.StatusActive {
		return models.User{}, store.ErrUserAlreadyActive
	}
	user.RegistrationStatus = models.StatusActive
	user.ServerID = &serverID
	user.CredentialPlain = ""
	m.users[handle] = user
	return user, nil
}

func (m *memUserRepo) CountByServer(ctx context.Context) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[int64]int{}
	for _, user := range m.users {
		if user.ServerID != nil {
			counts[*user.ServerID]++
		}
	}
	return counts, nil
}

type memServerRepo struct {
	mu      sync.Mutex
	servers map[int64]models.Server
}

func (m *memServerRepo) CreateServer(ctx context.Context, server models.Server) (models.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	server.ID = int64(len(m.servers) + 1)
	m.servers[server.ID] = server
	return server, nil
}

func (m *memServerRepo) FindServerByID(ctx context.Context, id int64) (models.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	server, ok := m.servers[id]
	if !ok {
		return models.Server{}, store.ErrNoServerWasFound
	}
	return server, nil
}

func (m *memServerRepo) ListServers(ctx context.Context) ([]models.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Server, 0, len(m.servers))
	for _, server := range m.servers {
		out = append(out, server)
	}
	return out, nil
}

func (m *memServerRepo) ListActiveServers(ctx context.Context) ([]models.Server, error) {
	all, _ := m.ListServers(ctx)
	out := all[:0]
	for _, server := range all {
		if server.IsActive {
			out = append(out, server)
		}
	}
	return out, nil
}

func (m *memServerRepo) UpdateServer(ctx context.Context, server models.Server) (models.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.servers[server.ID] = server
	return server, nil
}

func (m *memServerRepo) DeleteServer(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[id]; !ok {
		return store.ErrNoServerWasFound
	}
	delete(m.servers, id)
	return nil
}

type memCodeRepo struct {
	mu    sync.Mutex
	codes map[string]models.InviteCode
}

func (m *memCodeRepo) CreateCode(ctx context.Context, code models.InviteCode) (models.InviteCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[code.Code]; ok {
		return models.InviteCode{}, store.ErrCodeAlreadyExists
	}
	m.codes[code.Code] = code
	return code, nil
}

func (m *memCodeRepo) FindCode(ctx context.Context, code string) (models.InviteCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found, ok := m.codes[code]
	if !ok {
		return models.InviteCode{}, store.ErrCodeNotFound
	}
	return found, nil
}

func (m *memCodeRepo) ListCodes(ctx context.Context) ([]models.InviteCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.InviteCode, 0, len(m.codes))
	for _, code := range m.codes {
		out = append(out, code)
	}
	return out, nil
}

func (m *memCodeRepo) ConsumeCode(ctx context.Context, code, usedBy string, usedAt time.Time) (models.InviteCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found, ok := m.codes[code]
	if !ok || !found.IsActive {
		return models.InviteCode{}, store.ErrCodeNotFound
	}
	if found.Exhausted() {
		return models.InviteCode{}, store.ErrCodeExhausted
	}
	found.UsedCount++
	found.UsedBy = append(found.UsedBy, models.InviteCodeUse{Handle: usedBy, UsedAt: usedAt})
	if found.Exhausted() {
		found.IsActive = false
	}
	m.codes[code] = found
	return found, nil
}

func (m *memCodeRepo) DeleteCode(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[code]; !ok {
		return store.ErrCodeNotFound
	}
	delete(m.codes, code)
	return nil
}

func (m *memCodeRepo) SetCodeActive(ctx context.Context, code string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found, ok := m.codes[code]
	if !ok {
		return store.ErrCodeNotFound
	}
	found.IsActive = active
	m.codes[code] = found
	return nil
}

type memSettingsRepo struct {
	mu       sync.Mutex
	settings *models.Settings
}

func (m *memSettingsRepo) GetSettings(ctx context.Context) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings == nil {
		return models.DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *memSettingsRepo) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = &settings
	return settings, nil
}

// ─────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────

type fixture struct {
	handler *Handler
	users   *memUserRepo
	servers *memServerRepo
	codes   *memCodeRepo
}

// stubFederation satisfies the federation seam; the handler tests drive the
// manual flow, so no provider calls are expected.
type stubFederation struct{}

func (stubFederation) EnabledProviders() []string { return []string{"github"} }

func (stubFederation) BeginAuthorization(provider, state, redirectURL string) (string, error) {
	return "https://provider.example/authorize?state=" + state, nil
}

func (stubFederation) CompleteAuthorization(ctx context.Context, provider, code, redirectURL string) (string, error) {
	return "", nil
}

func (stubFederation) FetchIdentity(ctx context.Context, provider, accessToken string, policy models.GuildPolicy) (models.Identity, error) {
	return models.Identity{}, nil
}

func newFixture(t *testing.T, requireInvite bool, provisioner service.Provisioner) *fixture {
	t.Helper()

	cfg := &config.Config{
		Admin: config.Admin{
			PanelPassword:    "panel-pw",
			LoginPath:        "/admin/login",
			PanelPath:        "/admin",
			MaxLoginAttempts: 5,
			LockoutTime:      15 * time.Minute,
			TokenSignKey:     "test-sign-key",
			TokenDuration:    time.Hour,
		},
		Session:           config.Session{TTL: 30 * time.Minute},
		RequireInviteCode: requireInvite,
	}

	users := newMemUserRepo()
	servers := &memServerRepo{servers: map[int64]models.Server{}}
	codes := &memCodeRepo{codes: map[string]models.InviteCode{}}

	storages := &store.Storages{
		Users:       users,
		InviteCodes: codes,
		Servers:     servers,
		Settings:    &memSettingsRepo{},
	}

	sessions := session.NewMemoryStore(cfg.Session.TTL)

	services := service.NewServices(service.Deps{
		Config:      cfg,
		Storages:    storages,
		Sessions:    sessions,
		Attempts:    limiter.New(cfg.Admin.MaxLoginAttempts, cfg.Admin.LockoutTime),
		Federation:  stubFederation{},
		Provisioner: provisioner,
		Log:         logger.Nop(),
	})

	return &fixture{
		handler: NewHandler(services, sessions, cfg, logger.Nop()),
		users:   users,
		servers: servers,
		codes:   codes,
	}
}

// fakeTavern is a minimal stand-in for the remote chat server's admin API:
// csrf token, admin login with a session cookie, role check, user creation.
func fakeTavern(t *testing.T) (*httptest.Server, *int) {
	t.Helper()

	created := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /csrf-token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "csrf-1"}) //nolint:errcheck
	})
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session-tavern", Value: "s1"})
		http.SetCookie(w, &http.Cookie{Name: "session-tavern.sig", Value: "sig1"})
		json.NewEncoder(w).Encode(map[string]bool{"handle": true}) //nolint:errcheck
	})
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"handle": "admin", "admin": true}) //nolint:errcheck
	})
	mux.HandleFunc("POST /api/users/create", func(w http.ResponseWriter, r *http.Request) {
		created++
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &created
}

// nopProvisioner accepts every remote call.
type nopProvisioner struct{}

func (nopProvisioner) ProvisionUser(ctx context.Context, server models.Server, user provision.CreateUserRequest) error {
	return nil
}

func (nopProvisioner) TestConnection(ctx context.Context, server models.Server) error {
	return nil
}

// failingProvisioner rejects every remote create the way a dead backend
// would, with the login step named in the error.
type failingProvisioner struct{}

func (failingProvisioner) ProvisionUser(ctx context.Context, server models.Server, user provision.CreateUserRequest) error {
	return fmt.Errorf("%w: status 401", provision.ErrLoginFailed)
}

func (failingProvisioner) TestConnection(ctx context.Context, server models.Server) error {
	return fmt.Errorf("%w: status 401", provision.ErrLoginFailed)
}

// testClient wraps an httptest server with a cookie jar so the session
// cookie survives across calls, the way a browser would carry it.
type testClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newTestClient(t *testing.T, h *Handler) (*testClient, func()) {
	srv := httptest.NewServer(h.Init())

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:      t,
		base:   srv.URL,
		client: &http.Client{Jar: jar, CheckRedirect: func(req *http.Request, via []*http.Request) error { return http.ErrUseLastResponse }},
	}, srv.Close
}

func (c *testClient) do(method, path, body string) *http.Response {
	c.t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// ─────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────

func TestHealth(t *testing.T) {
	f := newFixture(t, false, nopProvisioner{})
	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestPublicConfig(t *testing.T) {
	f := newFixture(t, true, nopProvisioner{})
	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg struct {
		RequireInviteCode bool     `json:"requireInviteCode"`
		EnableManualLogin bool     `json:"enableManualLogin"`
		OAuthProviders    []string `json:"oauthProviders"`
	}
	decodeBody(t, resp, &cfg)

	assert.True(t, cfg.RequireInviteCode)
	assert.True(t, cfg.EnableManualLogin)
	assert.Equal(t, []string{"github"}, cfg.OAuthProviders)
}

// TestManualOnboardingEndToEnd walks the whole happy path over real HTTP:
// registration normalizes "Alice 01" to alice-01, the server list shows the
// seeded backend, selection provisions and activates the account.
func TestManualOnboardingEndToEnd(t *testing.T) {
	tavern, remoteCreates := fakeTavern(t)

	f := newFixture(t, false, provision.NewClient())
	f.servers.servers[1] = models.Server{
		ID: 1, Name: "main", URL: tavern.URL,
		AdminUsername: "admin", AdminPassword: "pw", IsActive: true,
	}

	client, done := newTestClient(t, f.handler)
	defer done()

	// register
	resp := client.do(http.MethodPost, "/api/register",
		`{"handle": "Alice 01", "password": "my-password"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.User
	decodeBody(t, resp, &created)
	assert.Equal(t, "alice-01", created.Handle)
	assert.Equal(t, models.StatusPendingSelection, created.RegistrationStatus)

	// pick a server
	resp = client.do(http.MethodGet, "/api/servers/available", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var available []models.ServerSummary
	decodeBody(t, resp, &available)
	require.Len(t, available, 1)
	assert.Equal(t, "main", available[0].Name)

	// bind
	resp = client.do(http.MethodPost, "/api/user/select-server", `{"serverId": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activated models.User
	decodeBody(t, resp, &activated)
	assert.Equal(t, models.StatusActive, activated.RegistrationStatus)

	// status reflects the active binding
	resp = client.do(http.MethodGet, "/api/user/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status service.StatusView
	decodeBody(t, resp, &status)
	assert.Equal(t, session.StateActive, status.State)
	assert.Equal(t, "alice-01", status.Handle)

	// the remote account was actually created and the stored record dropped
	// the plaintext secret on activation
	assert.Equal(t, 1, *remoteCreates)
	stored, err := f.users.FindUserByHandle(context.Background(), "alice-01")
	require.NoError(t, err)
	assert.Empty(t, stored.CredentialPlain)
}

// TestManualOnboardingWithoutPassword registers with no password at all: the
// service generates one, provisioning uses it, and the credentials endpoint
// reveals it exactly once.
func TestManualOnboardingWithoutPassword(t *testing.T) {
	tavern, remoteCreates := fakeTavern(t)

	f := newFixture(t, false, provision.NewClient())
	f.servers.servers[1] = models.Server{
		ID: 1, Name: "main", URL: tavern.URL,
		AdminUsername: "admin", AdminPassword: "pw", IsActive: true,
	}

	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodPost, "/api/register", `{"handle": "Alice 01"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.User
	decodeBody(t, resp, &created)
	assert.Equal(t, "alice-01", created.Handle)

	resp = client.do(http.MethodPost, "/api/user/select-server", `{"serverId": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, *remoteCreates)

	// first read hands out the generated password
	resp = client.do(http.MethodGet, "/api/user/credentials", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var creds struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	decodeBody(t, resp, &creds)
	assert.Equal(t, "alice-01", creds.Handle)
	assert.Len(t, creds.Password, 12)

	// the second read finds nothing
	resp = client.do(http.MethodGet, "/api/user/credentials", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// TestSelectServer_UpstreamFailureNamesTheStep checks that a 502 carries the
// provisioning error text instead of the generic message reserved for 5xx.
func TestSelectServer_UpstreamFailureNamesTheStep(t *testing.T) {
	f := newFixture(t, false, failingProvisioner{})
	f.servers.servers[1] = models.Server{
		ID: 1, Name: "main", URL: "http://tavern.example",
		AdminUsername: "admin", AdminPassword: "pw", IsActive: true,
	}

	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodPost, "/api/register", `{"handle": "carol", "password": "pw"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = client.do(http.MethodPost, "/api/user/select-server", `{"serverId": 1}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body models.APIResponse
	decodeBody(t, resp, &body)
	assert.Contains(t, body.Message, "login")
	assert.Contains(t, body.Message, "401")
}

func TestRegister_DuplicateHandle(t *testing.T) {
	f := newFixture(t, false, nopProvisioner{})
	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodPost, "/api/register", `{"handle": "bob", "password": "pw"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// same normalized handle, different spelling
	resp = client.do(http.MethodPost, "/api/register", `{"handle": "BOB", "password": "pw2"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestRegister_InviteGate(t *testing.T) {
	f := newFixture(t, true, nopProvisioner{})
	f.codes.codes["GOODCODE2345"] = models.InviteCode{Code: "GOODCODE2345", MaxUses: 1, IsActive: true}

	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodPost, "/api/register", `{"handle": "eve", "password": "pw"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "missing invite code must be rejected")
	resp.Body.Close()

	resp = client.do(http.MethodPost, "/api/register",
		`{"handle": "eve", "password": "pw", "inviteCode": "goodcode2345"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// the code is single use and burned now
	code := f.codes.codes["GOODCODE2345"]
	assert.Equal(t, 1, code.UsedCount)
	assert.False(t, code.IsActive)
}

func TestAdminAPI_RequiresToken(t *testing.T) {
	f := newFixture(t, false, nopProvisioner{})
	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodGet, "/api/admin/users", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminLoginFlow(t *testing.T) {
	f := newFixture(t, false, nopProvisioner{})
	client, done := newTestClient(t, f.handler)
	defer done()

	// wrong password reports remaining attempts
	resp := client.do(http.MethodPost, "/api/admin/login", `{"password": "nope"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var failed struct {
		Success           bool `json:"success"`
		RemainingAttempts int  `json:"remainingAttempts"`
	}
	decodeBody(t, resp, &failed)
	assert.False(t, failed.Success)
	assert.Equal(t, 4, failed.RemainingAttempts)

	// right password sets the admin cookie and unlocks the API
	resp = client.do(http.MethodPost, "/api/admin/login", `{"password": "panel-pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = client.do(http.MethodGet, "/api/admin/users", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = client.do(http.MethodGet, "/api/admin/stats", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestOAuthAuthorize_Redirects(t *testing.T) {
	f := newFixture(t, false, nopProvisioner{})
	client, done := newTestClient(t, f.handler)
	defer done()

	resp := client.do(http.MethodGet, "/oauth/authorize/github", "")

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "https://provider.example/authorize"))
	resp.Body.Close()
}
