package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/models"
)

var inviteCodeColumns = []string{
	"code", "max_uses", "used_count", "used_by", "expires_at",
	"is_active", "created_by", "created_at",
}

// inviteCodeRepository is the SQL-backed implementation of
// [InviteCodeRepository]. The used_by history is stored as a JSON text
// column; it is append-only and never queried by content.
type inviteCodeRepository struct {
	db     *DB
	logger *logger.Logger
}

// NewInviteCodeRepository constructs an [InviteCodeRepository] backed by the
// provided database connection and logger.
func NewInviteCodeRepository(db *DB, logger *logger.Logger) InviteCodeRepository {
	logger.Debug().Msg("creating invite code repository")
	return &inviteCodeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *inviteCodeRepository) CreateCode(ctx context.Context, code models.InviteCode) (models.InviteCode, error) {
	log := logger.FromContext(ctx)

	usedBy, err := json.Marshal(code.UsedBy)
	if err != nil {
		return models.InviteCode{}, fmt.Errorf("error marshaling used_by: %w", err)
	}
	if code.UsedBy == nil {
		usedBy = []byte("[]")
	}

	query, args, err := r.db.Builder().
		Insert("invite_codes").
		Columns(inviteCodeColumns...).
		Values(
			code.Code, code.MaxUses, code.UsedCount, string(usedBy), nullTime(code.ExpiresAt),
			code.IsActive, code.CreatedBy, code.CreatedAt,
		).
		ToSql()
	if err != nil {
		return models.InviteCode{}, fmt.Errorf("error building insert code query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		if r.db.errorClassificator.IsUniqueViolation(err) {
			return models.InviteCode{}, ErrCodeAlreadyExists
		}
		log.Err(err).Str("code", code.Code).Msg("error inserting invite code")
		return models.InviteCode{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return code, nil
}

func (r *inviteCodeRepository) FindCode(ctx context.Context, code string) (models.InviteCode, error) {
	query, args, err := r.db.Builder().
		Select(inviteCodeColumns...).
		From("invite_codes").
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return models.InviteCode{}, fmt.Errorf("error building select code query: %w", err)
	}

	found, err := scanInviteCode(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.InviteCode{}, ErrCodeNotFound
		}
		return models.InviteCode{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return found, nil
}

func (r *inviteCodeRepository) ListCodes(ctx context.Context) ([]models.InviteCode, error) {
	query, args, err := r.db.Builder().
		Select(inviteCodeColumns...).
		From("invite_codes").
		OrderBy("created_at ASC", "code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list codes query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	var codes []models.InviteCode
	for rows.Next() {
		code, err := scanInviteCode(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning code row: %w", err)
		}
		codes = append(codes, code)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}

	return codes, nil
}

// ConsumeCode performs the read-modify-write under a transaction so that two
// concurrent consumers of the same code cannot both pass the cap check.
func (r *inviteCodeRepository) ConsumeCode(ctx context.Context, code, usedBy string, usedAt time.Time) (models.InviteCode, error) {
	log := logger.FromContext(ctx)

	var consumed models.InviteCode
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.db.Builder().
			Select(inviteCodeColumns...).
			From("invite_codes").
			Where(sq.Eq{"code": code, "is_active": true}).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building select code query: %w", err)
		}

		found, err := scanInviteCode(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("unexpected DB error: %w", err)
		}

		if found.Exhausted() {
			return ErrCodeExhausted
		}

		found.UsedCount++
		found.UsedBy = append(found.UsedBy, models.InviteCodeUse{Handle: usedBy, UsedAt: usedAt})
		if found.Exhausted() {
			found.IsActive = false
		}

		usedByJSON, err := json.Marshal(found.UsedBy)
		if err != nil {
			return fmt.Errorf("error marshaling used_by: %w", err)
		}

		query, args, err = r.db.Builder().
			Update("invite_codes").
			Set("used_count", found.UsedCount).
			Set("used_by", string(usedByJSON)).
			Set("is_active", found.IsActive).
			Where(sq.Eq{"code": code}).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building update code query: %w", err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("unexpected DB error: %w", err)
		}

		consumed = found
		return nil
	})
	if err != nil {
		log.Err(err).Str("code", code).Str("used_by", usedBy).Msg("error consuming invite code")
		return models.InviteCode{}, err
	}

	return consumed, nil
}

func (r *inviteCodeRepository) DeleteCode(ctx context.Context, code string) error {
	query, args, err := r.db.Builder().
		Delete("invite_codes").
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building delete code query: %w", err)
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
		return ErrCodeNotFound
	}

	return nil
}

func (r *inviteCodeRepository) SetCodeActive(ctx context.Context, code string, active bool) error {
	query, args, err := r.db.Builder().
		Update("invite_codes").
		Set("is_active", active).
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building toggle code query: %w", err)
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
		return ErrCodeNotFound
	}

	return nil
}

func scanInviteCode(row rowScanner) (models.InviteCode, error) {
	var (
		code      models.InviteCode
		usedBy    string
		expiresAt sql.NullTime
	)

	err := row.Scan(
		&code.Code, &code.MaxUses, &code.UsedCount, &usedBy, &expiresAt,
		&code.IsActive, &code.CreatedBy, &code.CreatedAt,
	)
	if err != nil {
		return models.InviteCode{}, err
	}

	if expiresAt.Valid {
		code.ExpiresAt = &expiresAt.Time
	}
	if usedBy != "" {
		if err := json.Unmarshal([]byte(usedBy), &code.UsedBy); err != nil {
			return models.InviteCode{}, fmt.Errorf("error unmarshaling used_by: %w", err)
		}
	}

	return code, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
