package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the session persistence seam. The in-memory implementation below
// is process-local; lockout and login guarantees in a multi-process
// deployment require replacing it with a shared backing store.
type Store interface {
	// Create allocates a fresh anonymous session and returns a copy of it.
	Create() Session

	// Get returns a copy of the session with the given token, if it exists
	// and has not expired.
	Get(token string) (Session, bool)

	// Save writes the session back, resetting its idle deadline.
	Save(s Session)

	// Delete removes the session outright (logout).
	Delete(token string)

	// TakeCredentials atomically reads and clears the session's one-time
	// credentials. The second call for the same session reports false.
	TakeCredentials(token string) (TempCredentials, bool)

	// Sweep drops expired sessions and returns how many were removed.
	Sweep() int
}

// memoryStore is the default mutex-guarded map implementation of [Store].
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore returns an in-process [Store] whose sessions expire after
// ttl of inactivity.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *memoryStore) Create() Session {
	token := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		Token:     token,
		State:     StateAnonymous,
		ExpiresAt: m.now().Add(m.ttl),
	}
	m.sessions[token] = s

	return *s
}

func (m *memoryStore) Get(token string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || s.Expired(m.now()) {
		return Session{}, false
	}

	return *s, true
}

func (m *memoryStore) Save(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ExpiresAt = m.now().Add(m.ttl)
	stored := s
	m.sessions[s.Token] = &stored
}

func (m *memoryStore) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
}

func (m *memoryStore) TakeCredentials(token string) (TempCredentials, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || s.Expired(m.now()) || s.Credentials == nil {
		return TempCredentials{}, false
	}

	creds := *s.Credentials
	s.Credentials = nil

	return creds, true
}

func (m *memoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, token)
			removed++
		}
	}

	return removed
}
