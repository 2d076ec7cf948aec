package service

import (
	"context"
	"time"

	"github.com/tavern-tools/register/internal/provision"
	"github.com/tavern-tools/register/internal/store"
	"github.com/tavern-tools/register/models"
)

// ─────────────────────────────────────────────
// Mock repositories
// ─────────────────────────────────────────────

// mockUserRepo implements store.UserRepository for unit tests.
// Each method field can be overridden per test case.
type mockUserRepo struct {
	createUserFn       func(ctx context.Context, user models.User) (models.User, error)
	findUserByHandleFn func(ctx context.Context, handle string) (models.User, error)
	listUsersFn        func(ctx context.Context) ([]models.User, error)
	activateUserFn     func(ctx context.Context, handle string, serverID int64) (models.User, error)
	countByServerFn    func(ctx context.Context) (map[int64]int, error)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	return m.createUserFn(ctx, user)
}

func (m *mockUserRepo) FindUserByHandle(ctx context.Context, handle string) (models.User, error) {
	return m.findUserByHandleFn(ctx, handle)
}

func (m *mockUserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.listUsersFn(ctx)
}

func (m *mockUserRepo) ActivateUser(ctx context.Context, handle string, serverID int64) (models.User, error) {
	return m.activateUserFn(ctx, handle, serverID)
}

func (m *mockUserRepo) CountByServer(ctx context.Context) (map[int64]int, error) {
	return m.countByServerFn(ctx)
}

// mockCodeRepo implements store.InviteCodeRepository.
type mockCodeRepo struct {
	createCodeFn    func(ctx context.Context, code models.InviteCode) (models.InviteCode, error)
	findCodeFn      func(ctx context.Context, code string) (models.InviteCode, error)
	listCodesFn     func(ctx context.Context) ([]models.InviteCode, error)
	consumeCodeFn   func(ctx context.Context, code, usedBy string, usedAt time.Time) (models.InviteCode, error)
	deleteCodeFn    func(ctx context.Context, code string) error
	setCodeActiveFn func(ctx context.Context, code string, active bool) error
}

func (m *mockCodeRepo) CreateCode(ctx context.Context, code models.InviteCode) (models.InviteCode, error) {
	return m.createCodeFn(ctx, code)
}

func (m *mockCodeRepo) FindCode(ctx context.Context, code string) (models.InviteCode, error) {
	return m.findCodeFn(ctx, code)
}

func (m *mockCodeRepo) ListCodes(ctx context.Context) ([]models.InviteCode, error) {
	return m.listCodesFn(ctx)
}

func (m *mockCodeRepo) ConsumeCode(ctx context.Context, code, usedBy string, usedAt time.Time) (models.InviteCode, error) {
	return m.consumeCodeFn(ctx, code, usedBy, usedAt)
}

func (m *mockCodeRepo) DeleteCode(ctx context.Context, code string) error {
	return m.deleteCodeFn(ctx, code)
}

func (m *mockCodeRepo) SetCodeActive(ctx context.Context, code string, active bool) error {
	return m.setCodeActiveFn(ctx, code, active)
}

// mockServerRepo implements store.ServerRepository.
type mockServerRepo struct {
	createServerFn      func(ctx context.Context, server models.Server) (models.Server, error)
	findServerByIDFn    func(ctx context.Context, id int64) (models.Server, error)
	listServersFn       func(ctx context.Context) ([]models.Server, error)
	listActiveServersFn func(ctx context.Context) ([]models.Server, error)
	updateServerFn      func(ctx context.Context, server models.Server) (models.Server, error)
	deleteServerFn      func(ctx context.Context, id int64) error
}

func (m *mockServerRepo) CreateServer(ctx context.Context, server models.Server) (models.Server, error) {
	return m.createServerFn(ctx, server)
}

func (m *mockServerRepo) FindServerByID(ctx context.Context, id int64) (models.Server, error) {
	return m.findServerByIDFn(ctx, id)
}

func (m *mockServerRepo) ListServers(ctx context.Context) ([]models.Server, error) {
	return m.listServersFn(ctx)
}

func (m *mockServerRepo) ListActiveServers(ctx context.Context) ([]models.Server, error) {
	return m.listActiveServersFn(ctx)
}

func (m *mockServerRepo) UpdateServer(ctx context.Context, server models.Server) (models.Server, error) {
	return m.updateServerFn(ctx, server)
}

func (m *mockServerRepo) DeleteServer(ctx context.Context, id int64) error {
	return m.deleteServerFn(ctx, id)
}

// mockSettingsRepo implements store.SettingsRepository. The zero value
// serves the defaults, which most tests want.
type mockSettingsRepo struct {
	getSettingsFn    func(ctx context.Context) (models.Settings, error)
	updateSettingsFn func(ctx context.Context, settings models.Settings) (models.Settings, error)
}

func (m *mockSettingsRepo) GetSettings(ctx context.Context) (models.Settings, error) {
	if m.getSettingsFn == nil {
		return models.DefaultSettings(), nil
	}
	return m.getSettingsFn(ctx)
}

func (m *mockSettingsRepo) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	return m.updateSettingsFn(ctx, settings)
}

// ─────────────────────────────────────────────
// Mock outbound clients
// ─────────────────────────────────────────────

// mockFederation implements Federation and records how often the upstream
// calls were attempted, so tests can assert nothing went over the wire.
type mockFederation struct {
	enabledProvidersFn       func() []string
	beginAuthorizationFn     func(provider, state, redirectURL string) (string, error)
	completeAuthorizationFn  func(ctx context.Context, provider, code, redirectURL string) (string, error)
	fetchIdentityFn          func(ctx context.Context, provider, accessToken string, policy models.GuildPolicy) (models.Identity, error)
	completeAuthorizationHit int
	fetchIdentityHit         int
}

func (m *mockFederation) EnabledProviders() []string {
	if m.enabledProvidersFn == nil {
		return nil
	}
	return m.enabledProvidersFn()
}

func (m *mockFederation) BeginAuthorization(provider, state, redirectURL string) (string, error) {
	return m.beginAuthorizationFn(provider, state, redirectURL)
}

func (m *mockFederation) CompleteAuthorization(ctx context.Context, provider, code, redirectURL string) (string, error) {
	m.completeAuthorizationHit++
	return m.completeAuthorizationFn(ctx, provider, code, redirectURL)
}

func (m *mockFederation) FetchIdentity(ctx context.Context, provider, accessToken string, policy models.GuildPolicy) (models.Identity, error) {
	m.fetchIdentityHit++
	return m.fetchIdentityFn(ctx, provider, accessToken, policy)
}

// mockProvisioner implements Provisioner and counts remote creates.
type mockProvisioner struct {
	provisionUserFn  func(ctx context.Context, server models.Server, user provision.CreateUserRequest) error
	testConnectionFn func(ctx context.Context, server models.Server) error
	provisionHit     int
}

func (m *mockProvisioner) ProvisionUser(ctx context.Context, server models.Server, user provision.CreateUserRequest) error {
	m.provisionHit++
	if m.provisionUserFn == nil {
		return nil
	}
	return m.provisionUserFn(ctx, server, user)
}

func (m *mockProvisioner) TestConnection(ctx context.Context, server models.Server) error {
	if m.testConnectionFn == nil {
		return nil
	}
	return m.testConnectionFn(ctx, server)
}

// compile-time interface checks
var (
	_ store.UserRepository       = (*mockUserRepo)(nil)
	_ store.InviteCodeRepository = (*mockCodeRepo)(nil)
	_ store.ServerRepository     = (*mockServerRepo)(nil)
	_ store.SettingsRepository   = (*mockSettingsRepo)(nil)
	_ Federation                 = (*mockFederation)(nil)
	_ Provisioner                = (*mockProvisioner)(nil)
)
