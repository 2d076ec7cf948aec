package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/store"
	"github.com/tavern-tools/register/internal/utils"
	"github.com/tavern-tools/register/models"
)

// Administrator batch bounds.
const (
	maxBatchCount = 100
	maxCodeUses   = 1000
)

// InviteService manages the invite-code ledger.
type InviteService struct {
	codes store.InviteCodeRepository
	log   *logger.Logger
	now   func() time.Time
}

// NewInviteService builds the ledger service over the invite-code store.
func NewInviteService(codes store.InviteCodeRepository, log *logger.Logger) *InviteService {
	return &InviteService{codes: codes, log: log, now: time.Now}
}

// normalizeCode upper-cases user input; codes are stored upper-case.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks that a code exists, is active, has uses left and has not
// expired. It never mutates the ledger, so a later failure in the
// registration flow does not burn the code.
func (s *InviteService) Validate(ctx context.Context, code string) (models.InviteCode, error) {
	code = normalizeCode(code)
	if code == "" {
		return models.InviteCode{}, fmt.Errorf("%w: empty invite code", ErrInviteRequired)
	}

	found, err := s.codes.FindCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrCodeNotFound) {
			return models.InviteCode{}, fmt.Errorf("%w: unknown code", ErrInviteRequired)
		}
		return models.InviteCode{}, fmt.Errorf("error looking up invite code: %w", err)
	}

	if !found.IsActive {
		return models.InviteCode{}, fmt.Errorf("%w: code is deactivated", ErrInviteRequired)
	}
	if found.Expired(s.now()) {
		return models.InviteCode{}, ErrCodeExpired
	}
	if found.Exhausted() {
		return models.InviteCode{}, fmt.Errorf("%w: code has no uses left", ErrInviteRequired)
	}

	return found, nil
}

// Consume burns one use of the code on behalf of handle. Callers invoke it
// after the account exists; a failure here is logged and swallowed upstream
// so a consumed-code bookkeeping error does not undo a created account.
func (s *InviteService) Consume(ctx context.Context, code, handle string) error {
	code = normalizeCode(code)

	if _, err := s.codes.ConsumeCode(ctx, code, handle, s.now()); err != nil {
		return fmt.Errorf("error consuming invite code: %w", err)
	}

	return nil
}

// CreateBatch generates count fresh codes, each capped at maxUses uses and
// optionally expiring after expiresInDays days. Inserts are independent: a
// random collision skips that code and the rest of the batch still lands.
func (s *InviteService) CreateBatch(ctx context.Context, count, maxUses, expiresInDays int, createdBy string) ([]models.InviteCode, error) {
	if count < 1 || count > maxBatchCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrValidation, maxBatchCount)
	}
	if maxUses < 1 || maxUses > maxCodeUses {
		return nil, fmt.Errorf("%w: maxUses must be between 1 and %d", ErrValidation, maxCodeUses)
	}

	var expiresAt *time.Time
	if expiresInDays > 0 {
		t := s.now().AddDate(0, 0, expiresInDays)
		expiresAt = &t
	}

	created := make([]models.InviteCode, 0, count)
	for i := 0; i < count; i++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return created, fmt.Errorf("error generating invite code: %w", err)
		}

		record, err := s.codes.CreateCode(ctx, models.InviteCode{
			Code:      code,
			MaxUses:   maxUses,
			ExpiresAt: expiresAt,
			IsActive:  true,
			CreatedBy: createdBy,
			CreatedAt: s.now(),
		})
		if err != nil {
			if errors.Is(err, store.ErrCodeAlreadyExists) {
				s.log.Warn().Str("code", code).Msg("generated invite code collided, skipping")
				continue
			}
			return created, fmt.Errorf("error saving invite code: %w", err)
		}

		created = append(created, record)
	}

	return created, nil
}

// List returns one page of codes, newest first.
func (s *InviteService) List(ctx context.Context, page, limit int) ([]models.InviteCode, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	codes, err := s.listAll(ctx)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	// Newest first.
	for i, j := 0, len(codes)-1; i < j; i, j = i+1, j-1 {
		codes[i], codes[j] = codes[j], codes[i]
	}

	total := len(codes)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	pagination := models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}

	return codes[start:end], pagination, nil
}

// listAll returns every code, oldest first. The dashboard totals need the
// whole ledger, not one page.
func (s *InviteService) listAll(ctx context.Context) ([]models.InviteCode, error) {
	codes, err := s.codes.ListCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing invite codes: %w", err)
	}

	return codes, nil
}

// Delete removes a code from the ledger.
func (s *InviteService) Delete(ctx context.Context, code string) error {
	if err := s.codes.DeleteCode(ctx, normalizeCode(code)); err != nil {
		return fmt.Errorf("error deleting invite code: %w", err)
	}

	return nil
}

// SetActive toggles a code without touching its usage bookkeeping, so
// reactivating an exhausted code does not grant new uses.
func (s *InviteService) SetActive(ctx context.Context, code string, active bool) error {
	if err := s.codes.SetCodeActive(ctx, normalizeCode(code), active); err != nil {
		return fmt.Errorf("error toggling invite code: %w", err)
	}

	return nil
}
