package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-rush-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Engines hold timers and cannot leave the process, so sessions stay in a local map;
// Redis only carries a liveness marker per player so other instances can see who is playing.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessions[session.PlayerID()]
	s.sessions[session.PlayerID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.PlayerID()), session.Player().DisplayName, s.ttl).Err()
	return previous
}

func (s *SessionStore) Get(playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[playerID]
	if ok {
		_ = s.client.Expire(context.Background(), s.key(playerID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.PlayerID()]
	if !ok || current != session {
		return
	}
	delete(s.sessions, session.PlayerID())
	_ = s.client.Del(context.Background(), s.key(session.PlayerID())).Err()
}

// Online counts liveness markers across all instances.
func (s *SessionStore) Online(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "rush:session:*", 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func (s *SessionStore) key(playerID string) string {
	return "rush:session:" + playerID
}
