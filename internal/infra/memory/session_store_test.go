package memory

import (
	"context"
	"testing"
	"time"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/session"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)

	if _, ok, err := store.Load(ctx, "sid"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	sess := session.New("sid")
	sess.Set(domain.User{ID: "u1", Email: "a@b.no"}, "access", "refresh")
	sess.SetRole(domain.RoleAdmin)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, ok, err := store.Load(ctx, "sid")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !loaded.IsAdmin() || loaded.AccessToken() != "access" || loaded.User().Email != "a@b.no" {
		t.Fatalf("unexpected session %+v", loaded.Snapshot())
	}

	// Stored state is a copy.
	loaded.Clear()
	again, _, _ := store.Load(ctx, "sid")
	if !again.Authenticated() {
		t.Fatalf("expected stored session to be unaffected by caller mutation")
	}

	if err := store.Delete(ctx, "sid"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "sid"); ok {
		t.Fatalf("expected session to be deleted")
	}
}

func TestSessionStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_ = store.Save(ctx, session.New("sid"))
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Load(ctx, "sid"); ok {
		t.Fatalf("expected expired session to be gone")
	}
}

func TestSessionStoreSweepsExpiredOnSave(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_ = store.Save(ctx, session.New("old"))
	now = now.Add(2 * time.Minute)
	_ = store.Save(ctx, session.New("fresh"))

	store.mu.RLock()
	_, stale := store.sessions["old"]
	_, live := store.sessions["fresh"]
	store.mu.RUnlock()
	if stale || !live {
		t.Fatalf("expected only the fresh session to remain, old=%v fresh=%v", stale, live)
	}
}
