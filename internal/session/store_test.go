package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"watchquest/api/internal/store"
)

func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	redisStore, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = redisStore.Close() })
	return redisStore
}

func setupTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	docStore, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = docStore.Close() })
	return NewBadgerStore(docStore.DB())
}

func testRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	current, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("Current on empty store: %v", err)
	}
	if current != "" {
		t.Errorf("empty store returned user %q", current)
	}

	if err := s.Save(ctx, "u1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	current, err = s.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != "u1" {
		t.Errorf("Current = %q, want u1", current)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	current, err = s.Current(ctx)
	if err != nil {
		t.Fatalf("Current after Clear: %v", err)
	}
	if current != "" {
		t.Errorf("Current after Clear = %q, want empty", current)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	testRoundTrip(t, setupTestRedis(t))
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	testRoundTrip(t, setupTestBadger(t))
}

func TestClearIsIdempotent(t *testing.T) {
	s := setupTestBadger(t)
	ctx := context.Background()
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear on empty store: %v", err)
	}
}
