package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedMigrations embed.FS

// Dialects accepted by [Migrate]. The schema is maintained per dialect
// because the two engines disagree on auto-increment and timestamp syntax.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Migrate applies all pending schema migrations for the given dialect.
func Migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(embedMigrations)

	var dir, gooseDialect string
	switch dialect {
	case DialectSQLite:
		dir, gooseDialect = "sqlite", "sqlite3"
	case DialectPostgres:
		dir, gooseDialect = "postgres", "pgx"
	default:
		return fmt.Errorf("unknown migration dialect: %q", dialect)
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
