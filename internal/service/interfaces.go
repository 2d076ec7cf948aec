package service

import (
	"context"

	"github.com/tavern-tools/register/internal/provision"
	"github.com/tavern-tools/register/models"
)

// Federation is the seam to the OAuth provider client. Satisfied by
// *oauth.Client; tests substitute a function-field mock.
type Federation interface {
	EnabledProviders() []string
	BeginAuthorization(provider, state, redirectURL string) (string, error)
	CompleteAuthorization(ctx context.Context, provider, code, redirectURL string) (string, error)
	FetchIdentity(ctx context.Context, provider, accessToken string, policy models.GuildPolicy) (models.Identity, error)
}

// Provisioner is the seam to the backend server client. Satisfied by
// *provision.Client.
type Provisioner interface {
	ProvisionUser(ctx context.Context, server models.Server, user provision.CreateUserRequest) error
	TestConnection(ctx context.Context, server models.Server) error
}
