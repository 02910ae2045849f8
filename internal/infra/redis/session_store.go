package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-portal/internal/session"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps browser sessions in Redis as JSON snapshots, so any
// instance behind a load balancer can serve a browser.
// Sessions are stored as: SET quiz:session:{sessionID} {json} EX ttl
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, id string) (*session.Context, bool, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry is treated as a new session.
		_ = s.client.Del(ctx, s.key(id)).Err()
		return nil, false, nil
	}
	snap.ID = id
	return session.FromSnapshot(snap), true, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Context) error {
	raw, err := json.Marshal(sess.Snapshot())
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID()), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
