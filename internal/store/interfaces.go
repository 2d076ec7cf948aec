package store

import (
	"context"
	"time"

	"github.com/tavern-tools/register/models"
)

// UserRepository is the persistence gateway for user accounts, keyed by the
// normalized handle.
type UserRepository interface {
	// CreateUser persists a new account and returns it with server-assigned
	// fields populated. Returns ErrHandleAlreadyExists on a handle conflict.
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// FindUserByHandle returns the account with the given normalized handle,
	// or ErrNoUserWasFound.
	FindUserByHandle(ctx context.Context, handle string) (models.User, error)

	// ListUsers returns all accounts, oldest first.
	ListUsers(ctx context.Context) ([]models.User, error)

	// ActivateUser promotes a pending account to active, records its server
	// binding and discards the plaintext provisioning secret, all in one
	// statement. Returns ErrUserAlreadyActive when the account is already
	// active, ErrNoUserWasFound when it does not exist.
	ActivateUser(ctx context.Context, handle string, serverID int64) (models.User, error)

	// CountByServer returns the number of active bindings per server id.
	CountByServer(ctx context.Context) (map[int64]int, error)
}

// InviteCodeRepository is the persistence gateway for invite codes, keyed by
// the upper-cased code.
type InviteCodeRepository interface {
	// CreateCode persists a freshly generated code. Returns
	// ErrCodeAlreadyExists on collision.
	CreateCode(ctx context.Context, code models.InviteCode) (models.InviteCode, error)

	// FindCode returns the code regardless of its active flag, or
	// ErrCodeNotFound.
	FindCode(ctx context.Context, code string) (models.InviteCode, error)

	// ListCodes returns all codes, oldest first.
	ListCodes(ctx context.Context) ([]models.InviteCode, error)

	// ConsumeCode increments the use count and appends the consumer to the
	// usage list inside a single transaction; crossing the use cap flips the
	// active flag off. Returns ErrCodeNotFound for a missing or inactive
	// code and ErrCodeExhausted when the cap was already reached.
	ConsumeCode(ctx context.Context, code, usedBy string, usedAt time.Time) (models.InviteCode, error)

	// DeleteCode removes the code. Returns ErrCodeNotFound if absent.
	DeleteCode(ctx context.Context, code string) error

	// SetCodeActive toggles only the active flag; use counts and expiry are
	// untouched, so reactivating an exhausted code does not revive it.
	SetCodeActive(ctx context.Context, code string, active bool) error
}

// ServerRepository is the persistence gateway for backend server records,
// keyed by the database-assigned integer id.
type ServerRepository interface {
	CreateServer(ctx context.Context, server models.Server) (models.Server, error)
	FindServerByID(ctx context.Context, id int64) (models.Server, error)
	ListServers(ctx context.Context) ([]models.Server, error)
	ListActiveServers(ctx context.Context) ([]models.Server, error)
	UpdateServer(ctx context.Context, server models.Server) (models.Server, error)
	DeleteServer(ctx context.Context, id int64) error
}

// SettingsRepository is the persistence gateway for the single runtime
// settings record.
type SettingsRepository interface {
	// GetSettings returns the saved settings, or defaults when nothing has
	// been saved yet.
	GetSettings(ctx context.Context) (models.Settings, error)

	// UpdateSettings upserts the settings record and returns it.
	UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error)
}
