// Package session holds the ephemeral per-client onboarding state. Sessions
// live server-side, keyed by an opaque token delivered in a cookie; the
// default backing store is an in-process map, but everything is reached
// through the [Store] interface so a multi-instance deployment can swap in a
// shared store without touching the rest of the service.
package session

import "time"

// State tags which variant of onboarding state a session is in. Exactly one
// variant's fields are populated at a time; the setter methods below clear
// the others, so illegal combinations cannot be built up over requests.
type State string

const (
	// StateAnonymous is a fresh session with no identity attached.
	StateAnonymous State = "anonymous"
	// StateOAuthInFlight marks an outstanding authorization-code handshake.
	StateOAuthInFlight State = "oauth_in_flight"
	// StateInviteRequired holds a resolved federated identity waiting for an
	// invite code before the account is created.
	StateInviteRequired State = "invite_required"
	// StatePendingSelection belongs to a created account that has not yet
	// been bound to a backend server.
	StatePendingSelection State = "pending_selection"
	// StateActive belongs to a fully onboarded, logged-in account.
	StateActive State = "active"
)

// OAuthHandshake is the in-flight authorization-code state: the CSRF state
// value, the provider it was issued for, and the callback base URL the
// redirect was built with.
type OAuthHandshake struct {
	State    string
	Provider string
	BaseURL  string
}

// PendingIdentity is a resolved federated identity parked until the user
// supplies a valid invite code.
type PendingIdentity struct {
	Handle      string
	DisplayName string
	Provider    string
	OAuthID     string
}

// TempCredentials is a generated password parked for exactly one read.
type TempCredentials struct {
	Handle   string
	Password string
}

// Session is one client's onboarding state.
type Session struct {
	Token     string
	State     State
	ExpiresAt time.Time

	// UserHandle is set in StatePendingSelection and StateActive.
	UserHandle string

	// OAuth is set only in StateOAuthInFlight.
	OAuth *OAuthHandshake

	// Identity is set only in StateInviteRequired.
	Identity *PendingIdentity

	// Credentials survives the pending→active transition and is consumed by
	// its first read; see Store.TakeCredentials.
	Credentials *TempCredentials
}

// ToOAuthInFlight moves the session into the in-flight OAuth variant.
func (s *Session) ToOAuthInFlight(h OAuthHandshake) {
	s.State = StateOAuthInFlight
	s.OAuth = &h
	s.Identity = nil
	s.UserHandle = ""
}

// ToInviteRequired parks the resolved identity pending an invite code.
func (s *Session) ToInviteRequired(id PendingIdentity) {
	s.State = StateInviteRequired
	s.Identity = &id
	s.OAuth = nil
	s.UserHandle = ""
}

// ToPendingSelection attaches a created-but-unbound account.
func (s *Session) ToPendingSelection(handle string) {
	s.State = StatePendingSelection
	s.UserHandle = handle
	s.OAuth = nil
	s.Identity = nil
}

// ToActive attaches a fully onboarded account.
func (s *Session) ToActive(handle string) {
	s.State = StateActive
	s.UserHandle = handle
	s.OAuth = nil
	s.Identity = nil
}

// Expired reports whether the session has passed its deadline.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
