// Package limiter implements the per-client-IP failure tracker protecting
// the administrator login endpoint. It is deliberately not a token bucket:
// the required behaviour is "N failures, then a fixed lockout window,
// cleared entirely on success", which maps onto a counter with a deadline.
package limiter

import (
	"sync"
	"time"
)

// Result is the outcome of a pre-login check.
type Result struct {
	// Allowed reports whether a login attempt may proceed.
	Allowed bool

	// RemainingAttempts is how many more failures are tolerated before a
	// lockout is imposed. Zero when locked.
	RemainingAttempts int

	// LockUntil is the instant the active lockout ends; the zero time when
	// no lockout is active.
	LockUntil time.Time
}

type record struct {
	failures    int
	lockUntil   time.Time
	lastFailure time.Time
}

// Limiter tracks login failures per client IP. It is process-local; a
// multi-process deployment must centralize this state to keep the lockout
// guarantee.
type Limiter struct {
	mu          sync.Mutex
	records     map[string]*record
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

// New constructs a Limiter imposing a lockout of the given duration after
// maxAttempts consecutive failures from one IP.
func New(maxAttempts int, lockout time.Duration) *Limiter {
	return &Limiter{
		records:     make(map[string]*record),
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         time.Now,
	}
}

// Check reports whether ip may attempt a login right now. An expired lockout
// does not by itself clear the record; only a successful login (Clear) or
// the periodic Cleanup does.
func (l *Limiter) Check(ip string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[ip]
	if !ok {
		return Result{Allowed: true, RemainingAttempts: l.maxAttempts}
	}

	now := l.now()
	if !rec.lockUntil.IsZero() && now.Before(rec.lockUntil) {
		return Result{Allowed: false, LockUntil: rec.lockUntil}
	}

	remaining := l.maxAttempts - rec.failures
	if remaining < 0 {
		remaining = 0
	}

	return Result{Allowed: true, RemainingAttempts: remaining}
}

// RecordFailure registers one failed attempt from ip. Reaching the
// configured maximum sets the lockout deadline; nothing else is reset.
func (l *Limiter) RecordFailure(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[ip]
	if !ok {
		rec = &record{}
		l.records[ip] = rec
	}

	rec.failures++
	rec.lastFailure = l.now()
	if rec.failures >= l.maxAttempts {
		rec.lockUntil = l.now().Add(l.lockout)
	}
}

// Clear removes the record for ip entirely. Called on successful login.
func (l *Limiter) Clear(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, ip)
}

// Cleanup removes records whose lockout has expired and whose last failure
// is older than the lockout window, bounding memory. Returns how many
// records were dropped.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for ip, rec := range l.records {
		lockExpired := rec.lockUntil.IsZero() || now.After(rec.lockUntil)
		stale := now.Sub(rec.lastFailure) > l.lockout
		if lockExpired && stale {
			delete(l.records, ip)
			removed++
		}
	}

	return removed
}
