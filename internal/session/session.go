// Package session tracks which user the running process acts for.
package session

import (
	"sync" // Cached record locking

	"accrual_system/internal/domain" // Domain models
)

// Session is the explicit session context passed to scheduler and wallet
// operations. It holds the latest known copy of the logged-in user.
type Session struct {
	mu   sync.RWMutex // Guards user
	user domain.User  // Latest known record
}

// New returns a session for u.
func New(u domain.User) *Session {
	return &Session{user: u.Clone()}
}

// UserID returns the id of the session user.
func (s *Session) UserID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.ID
}

// User returns a copy of the latest known user record.
func (s *Session) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Set replaces the cached record after a successful write. Records for a
// different user or older than the cached one are ignored.
func (s *Session) Set(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID != s.user.ID || u.Version < s.user.Version {
		return // Foreign or out-of-order record
	}
	s.user = u.Clone() // Keep an independent copy
}
