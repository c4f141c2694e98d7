package auth

import (
	"sync"
	"time"
)

// Lockout thresholds.
const (
	MaxLoginAttempts = 5
	LockoutWindow    = 30 * time.Minute
)

// LoginLimiter tracks failed login attempts per subject in memory and
// locks a subject out after too many failures inside the window.
type LoginLimiter struct {
	mu       sync.Mutex
	now      func() time.Time
	attempts map[string][]time.Time
}

// NewLoginLimiter builds a limiter. A nil now defaults to time.Now.
func NewLoginLimiter(now func() time.Time) *LoginLimiter {
	if now == nil {
		now = time.Now
	}
	return &LoginLimiter{
		now:      now,
		attempts: make(map[string][]time.Time),
	}
}

// Locked reports whether the subject has exhausted its attempts.
func (l *LoginLimiter) Locked(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(subject)) >= MaxLoginAttempts
}

// RecordFailure registers a failed attempt and reports whether the
// subject is now locked.
func (l *LoginLimiter) RecordFailure(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	recent := append(l.prune(subject), l.now())
	l.attempts[subject] = recent
	return len(recent) >= MaxLoginAttempts
}

// Reset clears the subject's failure history after a successful login.
func (l *LoginLimiter) Reset(subject string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, subject)
}

// prune drops attempts older than the window. Callers hold the lock.
func (l *LoginLimiter) prune(subject string) []time.Time {
	cutoff := l.now().Add(-LockoutWindow)
	var recent []time.Time
	for _, at := range l.attempts[subject] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) == 0 {
		delete(l.attempts, subject)
	} else {
		l.attempts[subject] = recent
	}
	return recent
}
