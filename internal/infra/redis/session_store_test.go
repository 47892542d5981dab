package redis

import (
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := app.NewSession("quiz-1", domain.SessionOptions{Count: 1, TimeLimitSeconds: 5}, app.SessionConfig{})
	store.Add(session)
	if !mr.Exists("quiz:session:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, ok := store.Get("quiz-1"); !ok || got != session {
		t.Fatalf("expected session to be retrievable")
	}

	store.Remove("quiz-1")
	if mr.Exists("quiz:session:quiz-1") {
		t.Fatalf("expected redis key to be removed")
	}
}
