package oauth

import "errors"

var (
	// ErrUnknownProvider indicates a provider name outside the supported set.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrProviderNotConfigured indicates the provider is disabled or missing
	// client credentials.
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
	// ErrTokenExchangeFailed indicates the authorization-code exchange came
	// back with a non-success status; the wrap carries status and body.
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	// ErrIdentityFetchFailed indicates the profile endpoint came back with a
	// non-success status; the wrap carries status and body.
	ErrIdentityFetchFailed = errors.New("identity fetch failed")
	// ErrNotAMember indicates the guild membership policy found no
	// membership record.
	ErrNotAMember = errors.New("not a member of the required community")
	// ErrMembershipTooRecent indicates the membership is younger than the
	// policy's minimum age.
	ErrMembershipTooRecent = errors.New("community membership too recent")
	// ErrMembershipCheckFailed indicates the membership endpoint itself
	// failed, so the policy could not be evaluated.
	ErrMembershipCheckFailed = errors.New("membership check failed")
)
