package store

import (
	"context"
	"strings"

	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/logger"
)

// Storages bundles all repositories behind their interfaces so that services
// can be wired against seams instead of concrete SQL implementations.
type Storages struct {
	Users       UserRepository
	InviteCodes InviteCodeRepository
	Servers     ServerRepository
	Settings    SettingsRepository
}

// NewStorages connects to the configured database backend, applies pending
// migrations, and returns the repository set.
//
// The backend is selected by the DSN scheme: "postgres://" (or
// "postgresql://") connects via pgx, anything else is treated as a SQLite
// file path.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	var (
		db  *DB
		err error
	)

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		db, err = NewConnectPostgres(ctx, cfg.DSN, log)
	} else {
		db, err = NewConnectSQLite(ctx, cfg.DSN, log)
	}
	if err != nil {
		return nil, err
	}

	if err = db.Migrate(); err != nil {
		return nil, err
	}

	return &Storages{
		Users:       NewUserRepository(db, log),
		InviteCodes: NewInviteCodeRepository(db, log),
		Servers:     NewServerRepository(db, log),
		Settings:    NewSettingsRepository(db, log),
	}, nil
}
