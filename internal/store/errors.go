package store

import "errors"

// Sentinel errors returned by the repositories. Handlers map these onto HTTP
// statuses, so services propagate them unwrapped (or wrapped with %w).
var (
	// ErrHandleAlreadyExists indicates a user insert hit the unique handle
	// constraint.
	ErrHandleAlreadyExists = errors.New("handle already exists")
	// ErrNoUserWasFound indicates a user lookup matched nothing.
	ErrNoUserWasFound = errors.New("no user was found")
	// ErrUserAlreadyActive indicates an activation targeted a user whose
	// status is already active.
	ErrUserAlreadyActive = errors.New("user is already active")

	// ErrCodeNotFound indicates an invite code lookup matched no active code.
	ErrCodeNotFound = errors.New("invite code not found")
	// ErrCodeExhausted indicates an invite code has reached its use cap.
	ErrCodeExhausted = errors.New("invite code exhausted")
	// ErrCodeAlreadyExists indicates a generated code collided with an
	// existing one.
	ErrCodeAlreadyExists = errors.New("invite code already exists")

	// ErrNoServerWasFound indicates a server lookup matched nothing.
	ErrNoServerWasFound = errors.New("no server was found")
)
