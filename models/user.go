package models

import (
	"strings"
	"time"
)

// Registration statuses a user account moves through. A user is created in
// StatusPendingSelection and becomes StatusActive exactly once, when server
// binding succeeds.
const (
	StatusPendingSelection = "pending_selection"
	StatusActive           = "active"
)

// MethodManual marks accounts created through the registration form.
// OAuth-originated accounts carry "oauth:<provider>" instead.
const MethodManual = "manual"

// OAuthMethod returns the registration method string for the given provider.
func OAuthMethod(provider string) string {
	return "oauth:" + provider
}

// User is a locally recorded account awaiting or holding a binding to one of
// the configured backend servers.
type User struct {
	ID          int64  `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`

	// CredentialHash is the bcrypt hash used for manual login comparison.
	CredentialHash string `json:"-"`

	// CredentialPlain holds the chosen or generated password until server
	// binding succeeds; the remote provisioning handshake needs it in the
	// clear. It is emptied by activation and never serialized.
	CredentialPlain string `json:"-"`

	RegistrationMethod string    `json:"registrationMethod"`
	OAuthID            string    `json:"oauthId,omitempty"`
	InviteCodeUsed     string    `json:"inviteCode,omitempty"`
	OriginIP           string    `json:"ip,omitempty"`
	ServerID           *int64    `json:"serverId"`
	RegistrationStatus string    `json:"registrationStatus"`
	CreatedAt          time.Time `json:"registeredAt"`
}

// IsOAuth reports whether the account originates from a federated identity.
func (u User) IsOAuth() bool {
	return strings.HasPrefix(u.RegistrationMethod, "oauth:")
}

// OAuthProvider returns the provider part of an oauth registration method,
// or "" for manual accounts.
func (u User) OAuthProvider() string {
	if !u.IsOAuth() {
		return ""
	}
	return strings.TrimPrefix(u.RegistrationMethod, "oauth:")
}
