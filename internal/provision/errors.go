package provision

import "errors"

var (
	// ErrLoginFailed means the backend rejected the administrator credentials.
	ErrLoginFailed = errors.New("administrator login rejected by backend server")

	// ErrMissingSessionCookie means the backend accepted the login but set no
	// recognizable session cookie, so no authenticated follow-up is possible.
	ErrMissingSessionCookie = errors.New("backend server set no session cookie")

	// ErrNotAnAdministrator means the logged-in account lacks the admin role
	// required to create users.
	ErrNotAnAdministrator = errors.New("configured account is not a backend administrator")

	// ErrUserAlreadyExists means the backend already has an account under the
	// requested handle.
	ErrUserAlreadyExists = errors.New("account already exists on backend server")

	// ErrRemoteRequestFailed wraps transport-level and unexpected-status
	// failures of any handshake step.
	ErrRemoteRequestFailed = errors.New("backend server request failed")
)
