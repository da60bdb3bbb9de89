package memory

import (
	"context"
	"sync"

	"quiz-rush-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Put stores the session and returns the one it replaced, if any.
func (s *SessionStore) Put(session *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessions[session.PlayerID()]
	s.sessions[session.PlayerID()] = session
	return previous
}

func (s *SessionStore) Get(playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[playerID]
	return session, ok
}

// Delete removes the session only if it is still the stored one for its player.
func (s *SessionStore) Delete(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[session.PlayerID()]; ok && current == session {
		delete(s.sessions, session.PlayerID())
	}
}

// Online reports how many sessions are open in this process.
func (s *SessionStore) Online(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
