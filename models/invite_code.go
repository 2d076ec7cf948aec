package models

import "time"

// InviteCode is a single-use-capped registration token issued by an
// administrator. Codes are stored upper-case; lookups are exact matches, so
// callers upper-case user input before reaching the store.
type InviteCode struct {
	Code      string          `json:"code"`
	MaxUses   int             `json:"maxUses"`
	UsedCount int             `json:"usedCount"`
	UsedBy    []InviteCodeUse `json:"usedBy,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt"`
	IsActive  bool            `json:"isActive"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
}

// InviteCodeUse records one successful consumption of a code.
type InviteCodeUse struct {
	Handle string    `json:"handle"`
	UsedAt time.Time `json:"usedAt"`
}

// Exhausted reports whether the code has reached its use cap.
func (c InviteCode) Exhausted() bool {
	return c.UsedCount >= c.MaxUses
}

// Expired reports whether the code has an expiry in the past relative to now.
func (c InviteCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
