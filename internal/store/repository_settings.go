package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/models"
)

// settingsRepository is the SQL-backed implementation of
// [SettingsRepository]. The settings table holds at most one row (id = 1).
type settingsRepository struct {
	db     *DB
	logger *logger.Logger
}

// NewSettingsRepository constructs a [SettingsRepository] backed by the
// provided database connection and logger.
func NewSettingsRepository(db *DB, logger *logger.Logger) SettingsRepository {
	logger.Debug().Msg("creating settings repository")
	return &settingsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *settingsRepository) GetSettings(ctx context.Context) (models.Settings, error) {
	query, args, err := r.db.Builder().
		Select("enable_manual_login", "discord_required_guild_id", "discord_min_join_days").
		From("settings").
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return models.Settings{}, fmt.Errorf("error building select settings query: %w", err)
	}

	var settings models.Settings
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&settings.EnableManualLogin,
		&settings.DiscordPolicy.RequiredGuildID,
		&settings.DiscordPolicy.MinJoinDays,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultSettings(), nil
		}
		return models.Settings{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return settings, nil
}

func (r *settingsRepository) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	log := logger.FromContext(ctx)

	// ON CONFLICT upsert has identical syntax on SQLite and PostgreSQL.
	query, args, err := r.db.Builder().
		Insert("settings").
		Columns("id", "enable_manual_login", "discord_required_guild_id", "discord_min_join_days").
		Values(1, settings.EnableManualLogin, settings.DiscordPolicy.RequiredGuildID, settings.DiscordPolicy.MinJoinDays).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			enable_manual_login = excluded.enable_manual_login,
			discord_required_guild_id = excluded.discord_required_guild_id,
			discord_min_join_days = excluded.discord_min_join_days`).
		ToSql()
	if err != nil {
		return models.Settings{}, fmt.Errorf("error building upsert settings query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Msg("error upserting settings")
		return models.Settings{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return settings, nil
}
