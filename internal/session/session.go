// Package session owns the console's belief about who is logged in and
// reconciles it with the server on demand.
package session

import "sync"

// Session is the client-held view of the current actor.
// It is created unauthenticated; only Manager changes it.
type Session struct {
	mu            sync.RWMutex
	authenticated bool
	userName      string
}

func New() *Session {
	return &Session{}
}

// Snapshot is a consistent read of a Session
type Snapshot struct {
	Authenticated bool
	UserName      string
}

// IsAuthenticated reports the last verdict received from the server
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// UserName is empty unless the session is authenticated
func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Authenticated: s.authenticated, UserName: s.userName}
}

func (s *Session) set(authenticated bool, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = authenticated
	if !authenticated {
		userName = ""
	}
	s.userName = userName
}
