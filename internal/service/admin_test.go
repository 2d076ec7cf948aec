package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/limiter"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/models"
)

func newAdminFixture() (*AdminService, *mockUserRepo, *mockServerRepo, *mockProvisioner) {
	users := &mockUserRepo{}
	servers := &mockServerRepo{}
	provisioner := &mockProvisioner{}

	svc := NewAdminService(AdminDeps{
		Users:       users,
		Servers:     servers,
		Settings:    &mockSettingsRepo{},
		Invites:     NewInviteService(&mockCodeRepo{}, logger.Nop()),
		Provisioner: provisioner,
		Attempts:    limiter.New(5, 15*time.Minute),
		Config: config.Admin{
			PanelPassword: "correct-password",
			TokenSignKey:  "test-sign-key",
			TokenDuration: time.Hour,
		},
		Log: logger.Nop(),
	})

	return svc, users, servers, provisioner
}

func TestAdminLogin_IssuesVerifiableToken(t *testing.T) {
	svc, _, _, _ := newAdminFixture()

	result, err := svc.Login(context.Background(), "203.0.113.1", "correct-password")

	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.NoError(t, svc.VerifyToken(result.Token))
}

// TestAdminLogin_LockoutAfterFiveFailures walks an IP through the full
// lockout: five wrong passwords, then even the right one is refused.
func TestAdminLogin_LockoutAfterFiveFailures(t *testing.T) {
	svc, _, _, _ := newAdminFixture()
	ip := "203.0.113.2"

	for i := 0; i < 5; i++ {
		result, err := svc.Login(context.Background(), ip, "wrong")
		assert.ErrorIs(t, err, ErrAdminAuthFailed)
		assert.Equal(t, 4-i, result.RemainingAttempts)
	}

	result, err := svc.Login(context.Background(), ip, "correct-password")
	assert.ErrorIs(t, err, ErrLockedOut)
	assert.False(t, result.LockUntil.IsZero())
}

func TestAdminLogin_SuccessClearsFailures(t *testing.T) {
	svc, _, _, _ := newAdminFixture()
	ip := "203.0.113.3"

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), ip, "wrong")
		require.ErrorIs(t, err, ErrAdminAuthFailed)
	}

	_, err := svc.Login(context.Background(), ip, "correct-password")
	require.NoError(t, err)

	// the counter starts over after a success
	result, err := svc.Login(context.Background(), ip, "wrong")
	assert.ErrorIs(t, err, ErrAdminAuthFailed)
	assert.Equal(t, 4, result.RemainingAttempts)
}

func TestVerifyToken_RejectsGarbage(t *testing.T) {
	svc, _, _, _ := newAdminFixture()

	assert.ErrorIs(t, svc.VerifyToken(""), ErrAdminTokenInvalid)
	assert.ErrorIs(t, svc.VerifyToken("not-a-jwt"), ErrAdminTokenInvalid)
}

func TestListUsers_Pagination(t *testing.T) {
	svc, users, servers, _ := newAdminFixture()

	all := make([]models.User, 0, 25)
	for i := 0; i < 25; i++ {
		all = append(all, models.User{ID: int64(i + 1), Handle: "user"})
	}
	users.listUsersFn = func(ctx context.Context) ([]models.User, error) { return all, nil }
	servers.listServersFn = func(ctx context.Context) ([]models.Server, error) { return nil, nil }

	entries, pagination, err := svc.ListUsers(context.Background(), 2, 10)

	require.NoError(t, err)
	assert.Len(t, entries, 10)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 25, pagination.Total)
	assert.Equal(t, 3, pagination.TotalPages)

	// newest first: page two of ten starts at the fifteenth-newest user
	assert.Equal(t, int64(15), entries[0].ID)
}

func TestListUsers_ClampsBounds(t *testing.T) {
	svc, users, servers, _ := newAdminFixture()
	users.listUsersFn = func(ctx context.Context) ([]models.User, error) { return nil, nil }
	servers.listServersFn = func(ctx context.Context) ([]models.Server, error) { return nil, nil }

	_, pagination, err := svc.ListUsers(context.Background(), -4, 9999)

	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 100, pagination.Limit)
}

func TestCreateServer_VerifiesConnectionFirst(t *testing.T) {
	svc, _, servers, provisioner := newAdminFixture()

	provisioner.testConnectionFn = func(ctx context.Context, server models.Server) error {
		return assert.AnError
	}
	servers.createServerFn = func(ctx context.Context, server models.Server) (models.Server, error) {
		t.Fatal("server must not be saved when verification fails")
		return models.Server{}, nil
	}

	_, err := svc.CreateServer(context.Background(), models.Server{
		Name:          "main",
		URL:           "https://tavern.example",
		AdminUsername: "admin",
		AdminPassword: "pw",
	})

	assert.Error(t, err)
}

func TestCreateServer_RejectsIncompleteRecord(t *testing.T) {
	svc, _, _, _ := newAdminFixture()

	_, err := svc.CreateServer(context.Background(), models.Server{Name: "main"})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateServer_KeepsStoredCredentialsWhenBlank(t *testing.T) {
	svc, _, servers, provisioner := newAdminFixture()

	stored := models.Server{
		ID: 5, Name: "main", URL: "https://tavern.example",
		AdminUsername: "admin", AdminPassword: "stored-pw", IsActive: true,
	}
	servers.findServerByIDFn = func(ctx context.Context, id int64) (models.Server, error) { return stored, nil }

	var saved models.Server
	servers.updateServerFn = func(ctx context.Context, server models.Server) (models.Server, error) {
		saved = server
		return server, nil
	}
	provisioner.testConnectionFn = func(ctx context.Context, server models.Server) error {
		t.Fatal("unchanged connection fields must not trigger a re-verification")
		return nil
	}

	_, err := svc.UpdateServer(context.Background(), models.Server{
		ID: 5, Name: "renamed", URL: "https://tavern.example",
	})

	require.NoError(t, err)
	assert.Equal(t, "stored-pw", saved.AdminPassword)
	assert.Equal(t, "renamed", saved.Name)
}
