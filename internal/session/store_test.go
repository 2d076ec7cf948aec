package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore returns a memory store with a controllable clock.
func newTestStore(ttl time.Duration) (*memoryStore, *time.Time) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore(ttl).(*memoryStore)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestStore_CreateAndGet(t *testing.T) {
	store, _ := newTestStore(30 * time.Minute)

	created := store.Create()
	require.NotEmpty(t, created.Token)
	assert.Equal(t, StateAnonymous, created.State)

	found, ok := store.Get(created.Token)
	require.True(t, ok)
	assert.Equal(t, created.Token, found.Token)
}

func TestStore_GetUnknownToken(t *testing.T) {
	store, _ := newTestStore(30 * time.Minute)

	_, ok := store.Get("no-such-token")

	assert.False(t, ok)
}

func TestStore_ExpiredSessionIsGone(t *testing.T) {
	store, now := newTestStore(30 * time.Minute)

	created := store.Create()

	*now = now.Add(31 * time.Minute)

	_, ok := store.Get(created.Token)
	assert.False(t, ok)
}

// TestStore_SaveRefreshesDeadline checks that activity extends the idle
// lifetime of a session.
func TestStore_SaveRefreshesDeadline(t *testing.T) {
	store, now := newTestStore(30 * time.Minute)

	created := store.Create()

	*now = now.Add(20 * time.Minute)
	store.Save(created)

	*now = now.Add(20 * time.Minute)

	_, ok := store.Get(created.Token)
	assert.True(t, ok, "session saved 20 minutes ago must still be alive")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store, _ := newTestStore(30 * time.Minute)

	created := store.Create()

	first, _ := store.Get(created.Token)
	first.ToActive("alice-01")

	second, _ := store.Get(created.Token)
	assert.Equal(t, StateAnonymous, second.State, "mutating a returned session must not touch the store")
}

func TestStore_TakeCredentialsIsOneShot(t *testing.T) {
	store, _ := newTestStore(30 * time.Minute)

	created := store.Create()
	created.Credentials = &TempCredentials{Handle: "alice-01", Password: "generated"}
	store.Save(created)

	creds, ok := store.TakeCredentials(created.Token)
	require.True(t, ok)
	assert.Equal(t, "generated", creds.Password)

	_, ok = store.TakeCredentials(created.Token)
	assert.False(t, ok, "second read must fail")
}

func TestStore_Sweep(t *testing.T) {
	store, now := newTestStore(30 * time.Minute)

	old := store.Create()
	_ = old

	*now = now.Add(31 * time.Minute)
	fresh := store.Create()

	removed := store.Sweep()

	assert.Equal(t, 1, removed)
	_, ok := store.Get(fresh.Token)
	assert.True(t, ok)
}

func TestSession_StateTransitionsClearOtherVariants(t *testing.T) {
	s := Session{State: StateAnonymous}

	s.ToOAuthInFlight(OAuthHandshake{State: "abc", Provider: "github"})
	require.NotNil(t, s.OAuth)

	s.ToInviteRequired(PendingIdentity{Handle: "alice-01", Provider: "github"})
	assert.Nil(t, s.OAuth)
	require.NotNil(t, s.Identity)

	s.ToPendingSelection("alice-01")
	assert.Nil(t, s.Identity)
	assert.Equal(t, "alice-01", s.UserHandle)

	s.ToActive("alice-01")
	assert.Equal(t, StateActive, s.State)
}
