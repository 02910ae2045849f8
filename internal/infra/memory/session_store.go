package memory

import (
	"context"
	"sync"
	"time"

	"quiz-portal/internal/session"
)

// SessionStore is an in-memory implementation of session.Store.
// Entries are copied through snapshots so callers never share a Context.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu        sync.RWMutex
	sessions  map[string]storedSession
	nextSweep time.Time
}

type storedSession struct {
	snapshot  session.Snapshot
	expiresAt time.Time
}

// NewSessionStore keeps sessions for ttl after their last save; ttl <= 0 keeps them forever.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedSession),
	}
}

func (s *SessionStore) Load(_ context.Context, id string) (*session.Context, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, false, nil
	}
	return session.FromSnapshot(entry.snapshot), true, nil
}

func (s *SessionStore) Save(_ context.Context, sess *session.Context) error {
	now := s.clock()
	entry := storedSession{snapshot: sess.Snapshot()}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = entry
	if s.ttl > 0 && !now.Before(s.nextSweep) {
		s.sweepLocked(now)
		s.nextSweep = now.Add(s.ttl)
	}
	return nil
}

// sweepLocked drops every expired entry. Callers hold s.mu.
func (s *SessionStore) sweepLocked(now time.Time) {
	for id, entry := range s.sessions {
		if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
