package service

import "errors"

var (
	// ErrValidation marks bad input shape or length. Wrapped errors carry
	// the field-level detail.
	ErrValidation = errors.New("invalid input")

	// ErrHandleTaken means the normalized handle already belongs to an
	// account, regardless of which registration method created it.
	ErrHandleTaken = errors.New("handle already registered")

	// ErrBadCredentials covers both a missing account and a wrong password,
	// deliberately indistinguishable to the caller.
	ErrBadCredentials = errors.New("user not found or wrong password")

	// ErrWrongLoginMethod rejects a manual login against an account that was
	// created through a federated provider.
	ErrWrongLoginMethod = errors.New("account uses a federated login, not a password")

	// ErrManualLoginDisabled means the administrator has switched manual
	// registration and login off.
	ErrManualLoginDisabled = errors.New("manual login is disabled")

	// ErrInviteRequired means registration is gated and no valid invite code
	// accompanied the request.
	ErrInviteRequired = errors.New("a valid invite code is required")

	// ErrCodeExpired means the invite code exists but its expiry has passed.
	ErrCodeExpired = errors.New("invite code has expired")

	// ErrStateMismatch means the OAuth callback's state value does not match
	// the one issued to this session. Nothing is sent upstream in this case.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrSessionState means the session is not in the state the operation
	// requires, for example binding a server with no pending account.
	ErrSessionState = errors.New("session is not in the required state")

	// ErrNoServerSelected means the binding request named no server at all.
	ErrNoServerSelected = errors.New("no server selected")

	// ErrServerUnavailable means the chosen server does not exist or is not
	// accepting registrations.
	ErrServerUnavailable = errors.New("selected server is not available")

	// ErrUserAlreadyBound means the account already holds a server binding.
	ErrUserAlreadyBound = errors.New("account is already bound to a server")

	// ErrCredentialsAlreadyRead means the one-time credential reveal was
	// already consumed.
	ErrCredentialsAlreadyRead = errors.New("credentials already retrieved")

	// ErrAdminAuthFailed means the administrator panel password was wrong.
	ErrAdminAuthFailed = errors.New("wrong administrator password")

	// ErrLockedOut means the client IP exhausted its administrator login
	// attempts and must wait out the lockout window.
	ErrLockedOut = errors.New("too many failed login attempts")

	// ErrAdminTokenInvalid means the administrator session token is missing,
	// malformed, expired or carries a bad signature.
	ErrAdminTokenInvalid = errors.New("invalid administrator session token")
)
