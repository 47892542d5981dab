package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestKVStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewKVStore(newClient(mr))

	if _, found, err := store.Get(ctx, "quiz:scores"); err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}
	if err := store.Set(ctx, "quiz:scores", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, found, err := store.Get(ctx, "quiz:scores")
	if err != nil || !found || string(raw) != "[]" {
		t.Fatalf("unexpected get: %q %v %v", raw, found, err)
	}
	if err := store.Remove(ctx, "quiz:scores"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if mr.Exists("quiz:scores") {
		t.Fatalf("expected key removed")
	}
}

func TestKVStoreSurfacesConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	if _, _, err := NewKVStore(client).Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error from closed server")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
