package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/migrations"
)

// ErrorClassificator translates driver-specific errors into the store's
// sentinel errors. Each backend installs its own implementation.
type ErrorClassificator interface {
	// IsUniqueViolation reports whether err is a unique-constraint conflict.
	IsUniqueViolation(err error) bool
}

// DB wraps the shared *sql.DB handle together with the dialect-dependent
// pieces the repositories need: a squirrel statement builder with the right
// placeholder format and an error classificator for the active driver.
type DB struct {
	*sql.DB

	dialect            string
	builder            sq.StatementBuilderType
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// Migrate applies all pending schema migrations for the connected backend.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB, db.dialect)
}

// Builder returns the squirrel statement builder configured for the
// connected backend's placeholder format.
func (db *DB) Builder() sq.StatementBuilderType {
	return db.builder
}

// InTx runs fn inside a transaction, committing on nil and rolling back on
// error. Mutating read-modify-write operations (invite-code consumption,
// user activation) go through here so concurrent requests serialize on the
// database rather than racing in process memory.
func (db *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}
