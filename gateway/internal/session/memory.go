package session

import (
	"context"
	"sync"
	"time"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

// MemoryStore keeps sessions in process. Expired entries are dropped when
// they are read and swept on every Create.
type MemoryStore struct {
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (s *MemoryStore) Create(ctx context.Context, identity models.Identity) (*Session, error) {
	now := s.now()
	sess := newSession(identity, now, s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.sessions {
		if !now.Before(existing.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	s.sessions[sess.ID] = sess

	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
