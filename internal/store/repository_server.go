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

var serverColumns = []string{
	"id", "name", "url", "admin_username", "admin_password",
	"description", "provider", "maintainer", "contact", "announcement",
	"is_active", "created_at",
}

// serverRepository is the SQL-backed implementation of [ServerRepository].
// Server ids are assigned by the database, so concurrent creations cannot
// collide.
type serverRepository struct {
	db     *DB
	logger *logger.Logger
}

// NewServerRepository constructs a [ServerRepository] backed by the provided
// database connection and logger.
func NewServerRepository(db *DB, logger *logger.Logger) ServerRepository {
	logger.Debug().Msg("creating server repository")
	return &serverRepository{
		db:     db,
		logger: logger,
	}
}

func (r *serverRepository) CreateServer(ctx context.Context, server models.Server) (models.Server, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.Builder().
		Insert("servers").
		Columns(
			"name", "url", "admin_username", "admin_password",
			"description", "provider", "maintainer", "contact", "announcement",
			"is_active", "created_at",
		).
		Values(
			server.Name, server.URL, server.AdminUsername, server.AdminPassword,
			server.Description, server.Provider, server.Maintainer, server.Contact, server.Announcement,
			server.IsActive, server.CreatedAt,
		).
		ToSql()
	if err != nil {
		return models.Server{}, fmt.Errorf("error building insert server query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("name", server.Name).Msg("error inserting server")
		return models.Server{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	// pgx's stdlib driver does not implement LastInsertId, so look the row
	// up again by its natural key on that backend.
	if id, err := res.LastInsertId(); err == nil {
		server.ID = id
		return server, nil
	}

	return r.findLatestByName(ctx, server.Name)
}

func (r *serverRepository) findLatestByName(ctx context.Context, name string) (models.Server, error) {
	query, args, err := r.db.Builder().
		Select(serverColumns...).
		From("servers").
		Where(sq.Eq{"name": name}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return models.Server{}, fmt.Errorf("error building select server query: %w", err)
	}

	server, err := scanServer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return models.Server{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return server, nil
}

func (r *serverRepository) FindServerByID(ctx context.Context, id int64) (models.Server, error) {
	query, args, err := r.db.Builder().
		Select(serverColumns...).
		From("servers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Server{}, fmt.Errorf("error building select server query: %w", err)
	}

	server, err := scanServer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Server{}, ErrNoServerWasFound
		}
		return models.Server{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return server, nil
}

func (r *serverRepository) ListServers(ctx context.Context) ([]models.Server, error) {
	return r.list(ctx, nil)
}

func (r *serverRepository) ListActiveServers(ctx context.Context) ([]models.Server, error) {
	return r.list(ctx, sq.Eq{"is_active": true})
}

func (r *serverRepository) list(ctx context.Context, where any) ([]models.Server, error) {
	builder := r.db.Builder().
		Select(serverColumns...).
		From("servers").
		OrderBy("id ASC")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list servers query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning server row: %w", err)
		}
		servers = append(servers, server)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	return servers, nil
}

func (r *serverRepository) UpdateServer(ctx context.Context, server models.Server) (models.Server, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.Builder().
		Update("servers").
		Set("name", server.Name).
		Set("url", server.URL).
		Set("admin_username", server.AdminUsername).
		Set("admin_password", server.AdminPassword).
		Set("description", server.Description).
		Set("provider", server.Provider).
		Set("maintainer", server.Maintainer).
		Set("contact", server.Contact).
		Set("announcement", server.Announcement).
		Set("is_active", server.IsActive).
		Where(sq.Eq{"id": server.ID}).
		ToSql()
	if err != nil {
		return models.Server{}, fmt.Errorf("error building update server query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Int64("id", server.ID).Msg("error updating server")
		return models.Server{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return models.Server{}, fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return models.Server{}, ErrNoServerWasFound
	}

	return r.FindServerByID(ctx, server.ID)
}

func (r *serverRepository) DeleteServer(ctx context.Context, id int64) error {
	query, args, err := r.db.Builder().
		Delete("servers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building delete server query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrNoServerWasFound
	}

	return nil
}

func scanServer(row rowScanner) (models.Server, error) {
	var server models.Server

	err := row.Scan(
		&server.ID, &server.Name, &server.URL, &server.AdminUsername, &server.AdminPassword,
		&server.Description, &server.Provider, &server.Maintainer, &server.Contact, &server.Announcement,
		&server.IsActive, &server.CreatedAt,
	)
	if err != nil {
		return models.Server{}, err
	}

	return server, nil
}
