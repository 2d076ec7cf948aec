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

var userColumns = []string{
	"id", "handle", "display_name", "credential_hash", "credential_plain",
	"registration_method", "oauth_id", "invite_code_used", "origin_ip",
	"server_id", "registration_status", "created_at",
}

// userRepository is the SQL-backed implementation of [UserRepository].
type userRepository struct {
	db     *DB
	logger *logger.Logger
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

func (r *userRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.Builder().
		Insert("users").
		Columns(
			"handle", "display_name", "credential_hash", "credential_plain",
			"registration_method", "oauth_id", "invite_code_used", "origin_ip",
			"server_id", "registration_status", "created_at",
		).
		Values(
			user.Handle, user.DisplayName, user.CredentialHash, nullString(user.CredentialPlain),
			user.RegistrationMethod, nullString(user.OAuthID), nullString(user.InviteCodeUsed), nullString(user.OriginIP),
			user.ServerID, user.RegistrationStatus, user.CreatedAt,
		).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("error building insert user query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		if r.db.errorClassificator.IsUniqueViolation(err) {
			return models.User{}, ErrHandleAlreadyExists
		}
		log.Err(err).Str("handle", user.Handle).Msg("error inserting user")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return r.FindUserByHandle(ctx, user.Handle)
}

func (r *userRepository) FindUserByHandle(ctx context.Context, handle string) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.Builder().
		Select(userColumns...).
		From("users").
		Where(sq.Eq{"handle": handle}).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("error building select user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).Str("handle", handle).Msg("error scanning user")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return user, nil
}

func (r *userRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.Builder().
		Select(userColumns...).
		From("users").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list users query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Msg("error listing users")
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	return users, nil
}

// ActivateUser is the state-promoting mutation of the onboarding flow. The
// single guarded UPDATE makes "activate exactly once" hold under concurrent
// binding requests for the same account.
func (r *userRepository) ActivateUser(ctx context.Context, handle string, serverID int64) (models.User, error) {
	log := logger.FromContext(ctx)

	var activated models.User
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.db.Builder().
			Update("users").
			Set("server_id", serverID).
			Set("registration_status", models.StatusActive).
			Set("credential_plain", nil).
			Where(sq.Eq{"handle": handle, "registration_status": models.StatusPendingSelection}).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building activate user query: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("unexpected DB error: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("unexpected DB error: %w", err)
		}
		if affected == 0 {
			// Distinguish a missing user from one that is already bound.
			query, args, err := r.db.Builder().
				Select("registration_status").
				From("users").
				Where(sq.Eq{"handle": handle}).
				ToSql()
			if err != nil {
				return fmt.Errorf("error building status query: %w", err)
			}

			var status string
			if err := tx.QueryRowContext(ctx, query, args...).Scan(&status); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNoUserWasFound
				}
				return fmt.Errorf("unexpected DB error: %w", err)
			}
			return ErrUserAlreadyActive
		}

		return nil
	})
	if err != nil {
		log.Err(err).Str("handle", handle).Int64("server_id", serverID).Msg("error activating user")
		return models.User{}, err
	}

	activated, err = r.FindUserByHandle(ctx, handle)
	if err != nil {
		return models.User{}, err
	}

	return activated, nil
}

func (r *userRepository) CountByServer(ctx context.Context) (map[int64]int, error) {
	query, args, err := r.db.Builder().
		Select("server_id", "COUNT(*)").
		From("users").
		Where("server_id IS NOT NULL").
		GroupBy("server_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building count query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var (
			serverID int64
			count    int
		)
		if err := rows.Scan(&serverID, &count); err != nil {
			return nil, fmt.Errorf("error scanning count row: %w", err)
		}
		counts[serverID] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		user                                     models.User
		credentialPlain, oauthID, invite, origin sql.NullString
		serverID                                 sql.NullInt64
	)

	err := row.Scan(
		&user.ID, &user.Handle, &user.DisplayName, &user.CredentialHash, &credentialPlain,
		&user.RegistrationMethod, &oauthID, &invite, &origin,
		&serverID, &user.RegistrationStatus, &user.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}

	user.CredentialPlain = credentialPlain.String
	user.OAuthID = oauthID.String
	user.InviteCodeUsed = invite.String
	user.OriginIP = origin.String
	if serverID.Valid {
		user.ServerID = &serverID.Int64
	}

	return user, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
